// Package sample draws scalar parameters from named probability
// distributions with hard bounds. All randomness flows through a single
// seeded source so the same seed and call sequence reproduce the same values.
package sample

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Recognized distribution names.
const (
	DistUniform         = "uniform"
	DistNormal          = "normal"
	DistTruncatedNormal = "truncated_normal"
	DistExponential     = "exponential"
	DistLogNormal       = "lognormal"
	DistBeta            = "beta"
)

// Known reports whether name is a recognized distribution. Unknown names are
// a configuration error surfaced by the validator, never at sample time.
func Known(name string) bool {
	switch name {
	case DistUniform, DistNormal, DistTruncatedNormal, DistExponential, DistLogNormal, DistBeta:
		return true
	}
	return false
}

// Default shape parameters for the beta distribution (left-biased).
const (
	betaAlpha = 2.0
	betaBeta  = 5.0
)

// RNG is a named random source for one image. Every component consumes the
// per-image RNG handed to it; none may touch the process-global generator.
type RNG struct {
	src *rand.Rand
}

// New returns an RNG seeded deterministically.
func New(seed uint64) *RNG {
	return &RNG{src: rand.New(rand.NewSource(seed))}
}

// Float64 returns a uniform value in [0, 1).
func (r *RNG) Float64() float64 {
	return r.src.Float64()
}

// Intn returns a uniform integer in [0, n).
func (r *RNG) Intn(n int) int {
	return r.src.Intn(n)
}

// Uniform returns a uniform value in [min, max].
func (r *RNG) Uniform(min, max float64) float64 {
	if min == max {
		return min
	}
	return min + r.src.Float64()*(max-min)
}

// IntBetween returns a uniform integer in [min, max] inclusive.
func (r *RNG) IntBetween(min, max int) int {
	if min >= max {
		return min
	}
	return min + r.src.Intn(max-min+1)
}

// Perm returns a deterministic permutation of [0, n).
func (r *RNG) Perm(n int) []int {
	return r.src.Perm(n)
}

// Triangular samples a triangular distribution on [min, max] with the given
// mode, via inverse CDF.
func (r *RNG) Triangular(min, max, mode float64) float64 {
	if max <= min {
		return min
	}
	u := r.src.Float64()
	c := (mode - min) / (max - min)
	if u < c {
		return min + math.Sqrt(u*(max-min)*(mode-min))
	}
	return max - math.Sqrt((1-u)*(max-min)*(max-mode))
}

// Sample draws one value from the named distribution on [min, max].
// When min == max the bound is returned without consuming randomness.
func (r *RNG) Sample(min, max float64, distribution string) (float64, error) {
	if min == max {
		return min, nil
	}

	switch distribution {
	case DistUniform:
		return distuv.Uniform{Min: min, Max: max, Src: r.src}.Rand(), nil

	case DistNormal:
		// Mean at the midpoint, 3-sigma rule for the spread, clipped.
		v := r.normal(min, max)
		return clamp(v, min, max), nil

	case DistTruncatedNormal:
		// True truncation: rejection on the same mean/sigma, so no
		// probability mass accumulates at the bounds.
		for {
			v := r.normal(min, max)
			if v >= min && v <= max {
				return v, nil
			}
		}

	case DistExponential:
		// Rate 30/(max-min) puts ~63% of samples in the first 10% of the
		// range, modelling degradations that are usually absent.
		rate := 30.0 / (max - min)
		v := min + distuv.Exponential{Rate: rate, Src: r.src}.Rand()
		return math.Min(v, max), nil

	case DistLogNormal:
		v := min + distuv.LogNormal{Mu: 0, Sigma: 0.8, Src: r.src}.Rand()*(max-min)/10.0
		return math.Min(v, max), nil

	case DistBeta:
		v := distuv.Beta{Alpha: betaAlpha, Beta: betaBeta, Src: r.src}.Rand()
		return min + v*(max-min), nil
	}

	return 0, fmt.Errorf("unknown distribution %q", distribution)
}

// SampleInt draws from the named distribution and rounds to the nearest
// integer within [min, max].
func (r *RNG) SampleInt(min, max int, distribution string) (int, error) {
	v, err := r.Sample(float64(min), float64(max), distribution)
	if err != nil {
		return 0, err
	}
	n := int(math.Round(v))
	if n < min {
		n = min
	}
	if n > max {
		n = max
	}
	return n, nil
}

// SampleBatch draws n values from the named distribution.
func (r *RNG) SampleBatch(min, max float64, distribution string, n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		v, err := r.Sample(min, max, distribution)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *RNG) normal(min, max float64) float64 {
	mean := (min + max) / 2.0
	sigma := (max - min) / 6.0
	return distuv.Normal{Mu: mean, Sigma: sigma, Src: r.src}.Rand()
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
