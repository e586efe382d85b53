// Package effect applies visual effects to rendered text surfaces. Effects
// are tagged variants executed in a fixed order by a single dispatch routine;
// none of them move glyphs, so character boxes survive the chain unchanged.
package effect

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"

	"go-ocr-synth/internal/sample"
	"go-ocr-synth/pkg/models"
)

// Effect is one step of the chain.
type Effect interface {
	Name() string
	Apply(img *image.NRGBA, rng *sample.RNG) *image.NRGBA
}

// Chain runs the effects in order and reports which were applied.
func Chain(img image.Image, effects []Effect, rng *sample.RNG) (*image.NRGBA, []string) {
	out := imaging.Clone(img)
	applied := make([]string, 0, len(effects))
	for _, e := range effects {
		out = e.Apply(out, rng)
		applied = append(applied, e.Name())
	}
	return out, applied
}

// FromPlan assembles the chain for a plan, in canonical order. Zero-valued
// parameters contribute no step.
func FromPlan(p *models.Plan) []Effect {
	var effects []Effect
	if p.InkBleedRadius > 0 {
		effects = append(effects, InkBleed{Radius: p.InkBleedRadius})
	}
	if p.ShadowEnabled {
		effects = append(effects, Shadow{
			OffsetX: p.ShadowOffsetX,
			OffsetY: p.ShadowOffsetY,
			Radius:  p.ShadowRadius,
			Color:   p.ShadowColor,
		})
	}
	if p.ReliefType != "" && p.ReliefDepth > 0 {
		effects = append(effects, Relief{
			Type:      p.ReliefType,
			Depth:     p.ReliefDepth,
			Azimuth:   p.LightAzimuth * math.Pi / 180,
			Elevation: p.LightElevation * math.Pi / 180,
		})
	}
	if p.NoiseDensity > 0 {
		effects = append(effects, SaltPepper{Density: p.NoiseDensity})
	}
	if p.BlurRadius > 0 {
		effects = append(effects, GaussianBlur{Radius: p.BlurRadius})
	}
	if p.Brightness > 0 && p.Brightness != 1 {
		effects = append(effects, Brightness{Factor: p.Brightness})
	}
	if p.Contrast > 0 && p.Contrast != 1 {
		effects = append(effects, Contrast{Factor: p.Contrast})
	}
	if p.MorphologyOp != "" && p.MorphologyKernel > 1 {
		effects = append(effects, Morphology{Op: p.MorphologyOp, Kernel: p.MorphologyKernel})
	}
	if p.CutoutSize > 0 {
		effects = append(effects, Cutout{Size: p.CutoutSize, Fill: p.BackgroundColor})
	}
	return effects
}

// InkBleed softens glyph edges by blurring the surface and re-compositing
// the sharp original over the halo.
type InkBleed struct {
	Radius float64
}

func (e InkBleed) Name() string { return "ink_bleed" }

func (e InkBleed) Apply(img *image.NRGBA, _ *sample.RNG) *image.NRGBA {
	halo := imaging.Blur(img, e.Radius)
	draw.Draw(halo, halo.Bounds(), img, img.Bounds().Min, draw.Over)
	return halo
}

// Shadow draws a blurred, offset copy of the glyph alpha in the shadow color
// underneath the text.
type Shadow struct {
	OffsetX int
	OffsetY int
	Radius  float64
	Color   models.RGB
}

func (e Shadow) Name() string { return "shadow" }

func (e Shadow) Apply(img *image.NRGBA, _ *sample.RNG) *image.NRGBA {
	b := img.Bounds()
	sh := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			a := img.NRGBAAt(x, y).A
			if a > 0 {
				sh.SetNRGBA(x, y, color.NRGBA{R: e.Color.R, G: e.Color.G, B: e.Color.B, A: a})
			}
		}
	}
	if e.Radius > 0 {
		sh = imaging.Blur(sh, e.Radius)
	}

	out := image.NewNRGBA(b)
	shifted := b.Add(image.Pt(e.OffsetX, e.OffsetY))
	draw.Draw(out, shifted, sh, b.Min, draw.Over)
	draw.Draw(out, b, img, b.Min, draw.Over)
	return out
}

// Relief shades glyphs as a lit height field. The alpha channel acts as the
// height map; raised lights the strokes, engraved inverts the depth, and
// embossed replaces color with the shade itself.
type Relief struct {
	Type      string // raised | embossed | engraved
	Depth     float64
	Azimuth   float64 // radians
	Elevation float64 // radians
}

func (e Relief) Name() string { return "relief_" + e.Type }

func (e Relief) Apply(img *image.NRGBA, _ *sample.RNG) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := imaging.Clone(img)

	depth := e.Depth
	if e.Type == "engraved" {
		depth = -depth
	}
	lx := math.Cos(e.Elevation) * math.Cos(e.Azimuth)
	ly := math.Cos(e.Elevation) * math.Sin(e.Azimuth)
	lz := math.Sin(e.Elevation)

	height := func(x, y int) float64 {
		if x < 0 {
			x = 0
		} else if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		} else if y >= h {
			y = h - 1
		}
		return float64(img.NRGBAAt(b.Min.X+x, b.Min.Y+y).A) / 255
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := img.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			if px.A == 0 {
				continue
			}
			gx := (height(x+1, y) - height(x-1, y)) / 2 * depth
			gy := (height(x, y+1) - height(x, y-1)) / 2 * depth
			norm := math.Sqrt(gx*gx + gy*gy + 1)
			shade := (-gx*lx - gy*ly + lz) / norm
			if shade < 0 {
				shade = 0
			} else if shade > 1 {
				shade = 1
			}

			var c color.NRGBA
			if e.Type == "embossed" {
				g := uint8(shade * 255)
				c = color.NRGBA{R: g, G: g, B: g, A: px.A}
			} else {
				factor := 0.4 + 0.6*shade
				c = color.NRGBA{
					R: clamp8(float64(px.R) * factor),
					G: clamp8(float64(px.G) * factor),
					B: clamp8(float64(px.B) * factor),
					A: px.A,
				}
			}
			out.SetNRGBA(b.Min.X+x, b.Min.Y+y, c)
		}
	}
	return out
}

// SaltPepper flips an exact pixel count to pure black or white, sampled
// without replacement, half each.
type SaltPepper struct {
	Density float64
}

func (e SaltPepper) Name() string { return "salt_pepper" }

func (e SaltPepper) Apply(img *image.NRGBA, rng *sample.RNG) *image.NRGBA {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	n := int(e.Density * float64(total))
	if n <= 0 {
		return img
	}
	if n > total {
		n = total
	}
	out := imaging.Clone(img)
	for i, idx := range pickDistinct(rng, total, n) {
		x := b.Min.X + idx%b.Dx()
		y := b.Min.Y + idx/b.Dx()
		v := uint8(0)
		if i%2 == 0 {
			v = 255
		}
		out.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
	}
	return out
}

// pickDistinct draws n distinct indices from [0, total) with a sparse
// Fisher-Yates so large surfaces never allocate a full permutation.
func pickDistinct(rng *sample.RNG, total, n int) []int {
	swapped := make(map[int]int, n)
	out := make([]int, n)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(total-i)
		vi, ok := swapped[i]
		if !ok {
			vi = i
		}
		vj, ok := swapped[j]
		if !ok {
			vj = j
		}
		out[i] = vj
		swapped[j] = vi
	}
	return out
}

// GaussianBlur blurs the whole surface.
type GaussianBlur struct {
	Radius float64
}

func (e GaussianBlur) Name() string { return "gaussian_blur" }

func (e GaussianBlur) Apply(img *image.NRGBA, _ *sample.RNG) *image.NRGBA {
	return imaging.Blur(img, e.Radius)
}

// Brightness multiplies every channel by the factor.
type Brightness struct {
	Factor float64
}

func (e Brightness) Name() string { return "brightness" }

func (e Brightness) Apply(img *image.NRGBA, _ *sample.RNG) *image.NRGBA {
	out := imaging.Clone(img)
	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := out.NRGBAAt(x, y)
			px.R = clamp8(float64(px.R) * e.Factor)
			px.G = clamp8(float64(px.G) * e.Factor)
			px.B = clamp8(float64(px.B) * e.Factor)
			out.SetNRGBA(x, y, px)
		}
	}
	return out
}

// Contrast scales channel distance from mid-gray by the factor.
type Contrast struct {
	Factor float64
}

func (e Contrast) Name() string { return "contrast" }

func (e Contrast) Apply(img *image.NRGBA, _ *sample.RNG) *image.NRGBA {
	out := imaging.Clone(img)
	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := out.NRGBAAt(x, y)
			px.R = clamp8((float64(px.R)-128)*e.Factor + 128)
			px.G = clamp8((float64(px.G)-128)*e.Factor + 128)
			px.B = clamp8((float64(px.B)-128)*e.Factor + 128)
			out.SetNRGBA(x, y, px)
		}
	}
	return out
}

// Morphology erodes or dilates with an odd square kernel.
type Morphology struct {
	Op     string // erode | dilate
	Kernel int
}

func (e Morphology) Name() string { return "morphology_" + e.Op }

func (e Morphology) Apply(img *image.NRGBA, _ *sample.RNG) *image.NRGBA {
	k := e.Kernel
	if k%2 == 0 {
		k++
	}
	r := k / 2
	b := img.Bounds()
	out := image.NewNRGBA(b)

	dilate := e.Op == "dilate"
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			best := img.NRGBAAt(x, y)
			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					nx, ny := x+dx, y+dy
					if nx < b.Min.X || nx >= b.Max.X || ny < b.Min.Y || ny >= b.Max.Y {
						continue
					}
					px := img.NRGBAAt(nx, ny)
					if dilate && px.A > best.A {
						best = px
					} else if !dilate && px.A < best.A {
						best = px
					}
				}
			}
			out.SetNRGBA(x, y, best)
		}
	}
	return out
}

// Cutout blanks a random square with the canvas color so the occlusion
// disappears into the background after placement.
type Cutout struct {
	Size int
	Fill models.RGB
}

func (e Cutout) Name() string { return "cutout" }

func (e Cutout) Apply(img *image.NRGBA, rng *sample.RNG) *image.NRGBA {
	b := img.Bounds()
	if e.Size <= 0 || b.Dx() == 0 || b.Dy() == 0 {
		return img
	}
	size := e.Size
	if size > b.Dx() {
		size = b.Dx()
	}
	if size > b.Dy() {
		size = b.Dy()
	}
	x0 := b.Min.X + rng.Intn(b.Dx()-size+1)
	y0 := b.Min.Y + rng.Intn(b.Dy()-size+1)

	out := imaging.Clone(img)
	fill := image.NewUniform(color.NRGBA{R: e.Fill.R, G: e.Fill.G, B: e.Fill.B, A: 255})
	draw.Draw(out, image.Rect(x0, y0, x0+size, y0+size), fill, image.Point{}, draw.Src)
	return out
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
