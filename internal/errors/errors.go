package errors

import "fmt"

// ErrorKind represents different categories of generation errors
type ErrorKind string

const (
	KindConfig             ErrorKind = "config"
	KindResourceMissing    ErrorKind = "resource_missing"
	KindGlyphMiss          ErrorKind = "glyph_miss"
	KindRenderPanic        ErrorKind = "render_panic"
	KindBackgroundTooSmall ErrorKind = "background_too_small"
	KindCorpusEmpty        ErrorKind = "corpus_empty"
	KindIO                 ErrorKind = "io"
	KindNoHealthyResource  ErrorKind = "no_healthy_resource"
	KindInternalInvariant  ErrorKind = "internal_invariant"
	KindOther              ErrorKind = "other"
)

// GenError is a structured generation error carrying its taxonomy kind and,
// where relevant, the resource that caused it.
type GenError struct {
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
	Resource string    `json:"resource,omitempty"`
	Cause    error     `json:"-"`
}

// Error implements the error interface
func (e *GenError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *GenError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new configuration error
func NewConfigError(message string, cause error) *GenError {
	return &GenError{Kind: KindConfig, Message: message, Cause: cause}
}

// NewResourceMissingError reports a font, background, or corpus file that
// does not exist before generation starts.
func NewResourceMissingError(message string, cause error) *GenError {
	return &GenError{Kind: KindResourceMissing, Message: message, Cause: cause}
}

// NewGlyphMissError reports a font that lacks a glyph at runtime.
func NewGlyphMissError(fontPath string, ch rune) *GenError {
	return &GenError{
		Kind:     KindGlyphMiss,
		Message:  fmt.Sprintf("font lacks glyph %q", ch),
		Resource: fontPath,
	}
}

// NewRenderPanicError wraps a recovered rasterizer panic.
func NewRenderPanicError(fontPath string, recovered interface{}) *GenError {
	return &GenError{
		Kind:     KindRenderPanic,
		Message:  fmt.Sprintf("rasterizer panic: %v", recovered),
		Resource: fontPath,
	}
}

// NewBackgroundTooSmallError reports a background smaller than required.
func NewBackgroundTooSmallError(path, message string) *GenError {
	return &GenError{Kind: KindBackgroundTooSmall, Message: message, Resource: path}
}

// NewCorpusEmptyError reports that no text could be extracted.
func NewCorpusEmptyError(message string) *GenError {
	return &GenError{Kind: KindCorpusEmpty, Message: message}
}

// NewIOError creates a new I/O error
func NewIOError(message string, cause error) *GenError {
	return &GenError{Kind: KindIO, Message: message, Cause: cause}
}

// NewNoHealthyResourceError reports that selection found no eligible resource.
func NewNoHealthyResourceError(message string) *GenError {
	return &GenError{Kind: KindNoHealthyResource, Message: message}
}

// NewInvariantError reports a violated pipeline invariant; the plan is dumped
// by the scheduler for postmortem.
func NewInvariantError(message string) *GenError {
	return &GenError{Kind: KindInternalInvariant, Message: message}
}

// KindOf classifies any error into the taxonomy; plain errors map to "other".
func KindOf(err error) ErrorKind {
	if genErr, ok := err.(*GenError); ok {
		return genErr.Kind
	}
	return KindOther
}

// ResourceOf returns the implicated resource path, if any.
func ResourceOf(err error) string {
	if genErr, ok := err.(*GenError); ok {
		return genErr.Resource
	}
	return ""
}

// Retryable reports whether a task failing with this kind should be retried
// with a fresh resource rather than aborting the run.
func Retryable(kind ErrorKind) bool {
	switch kind {
	case KindGlyphMiss, KindRenderPanic, KindBackgroundTooSmall, KindIO, KindOther:
		return true
	}
	return false
}

// IsKind checks if the error is of a specific kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
