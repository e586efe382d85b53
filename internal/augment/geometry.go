package augment

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/mat"

	"go-ocr-synth/internal/sample"
	"go-ocr-synth/pkg/models"
)

// Rotate turns the surface by angle degrees counter-clockwise, expanding the
// canvas to fit. Boxes become the axis-aligned hulls of their rotated
// corners; nothing is clipped because the canvas grows.
func Rotate(img *image.NRGBA, boxes []models.CharacterBox, angle float64) (*image.NRGBA, []models.CharacterBox) {
	out := imaging.Rotate(img, angle, color.Transparent)

	ob := img.Bounds()
	nb := out.Bounds()
	cx, cy := float64(ob.Dx())/2, float64(ob.Dy())/2
	ncx, ncy := float64(nb.Dx())/2, float64(nb.Dy())/2

	theta := angle * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)
	// Visual counter-clockwise in a y-down frame.
	rot := func(x, y float64) (float64, float64) {
		dx, dy := x-cx, y-cy
		return dx*cos + dy*sin + ncx, -dx*sin + dy*cos + ncy
	}

	updated := make([]models.CharacterBox, len(boxes))
	for i, bb := range boxes {
		corners := [4][2]float64{
			{float64(bb.X0), float64(bb.Y0)},
			{float64(bb.X1), float64(bb.Y0)},
			{float64(bb.X0), float64(bb.Y1)},
			{float64(bb.X1), float64(bb.Y1)},
		}
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, c := range corners {
			x, y := rot(c[0], c[1])
			minX = math.Min(minX, x)
			minY = math.Min(minY, y)
			maxX = math.Max(maxX, x)
			maxY = math.Max(maxY, y)
		}
		bb.X0, bb.Y0 = int(math.Floor(minX)), int(math.Floor(minY))
		bb.X1, bb.Y1 = int(math.Ceil(maxX)), int(math.Ceil(maxY))
		updated[i] = clipBox(bb, nb.Dx(), nb.Dy())
	}
	return out, updated
}

// Perspective jitters the four surface corners by up to
// magnitude·min(W,H) pixels each, fits the 3x3 homography through the moved
// corners, and resamples through its inverse. Boxes map analytically through
// the forward homography.
func Perspective(img *image.NRGBA, boxes []models.CharacterBox, magnitude float64, rng *sample.RNG) (*image.NRGBA, []models.CharacterBox) {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	scale := magnitude * math.Min(w, h)

	src := [4][2]float64{{0, 0}, {w, 0}, {w, h}, {0, h}}
	dst := src
	for i := range dst {
		dst[i][0] += rng.Uniform(-1, 1) * scale
		dst[i][1] += rng.Uniform(-1, 1) * scale
	}

	fwd, err := homography(src, dst)
	if err != nil {
		return img, boxes
	}
	var inv mat.Dense
	if err := inv.Inverse(fwd); err != nil {
		return img, boxes
	}

	out := resample(img, func(x, y float64) (float64, float64) {
		return project(&inv, x, y)
	})

	updated := make([]models.CharacterBox, len(boxes))
	for i, bb := range boxes {
		corners := [4][2]float64{
			{float64(bb.X0), float64(bb.Y0)},
			{float64(bb.X1), float64(bb.Y0)},
			{float64(bb.X0), float64(bb.Y1)},
			{float64(bb.X1), float64(bb.Y1)},
		}
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, c := range corners {
			x, y := project(fwd, c[0], c[1])
			minX = math.Min(minX, x)
			minY = math.Min(minY, y)
			maxX = math.Max(maxX, x)
			maxY = math.Max(maxY, y)
		}
		bb.X0, bb.Y0 = int(math.Floor(minX)), int(math.Floor(minY))
		bb.X1, bb.Y1 = int(math.Ceil(maxX)), int(math.Ceil(maxY))
		updated[i] = clipBox(bb, b.Dx(), b.Dy())
	}
	return out, updated
}

// homography solves the direct linear transform for the 3x3 matrix taking
// the src quad to the dst quad (h33 fixed at 1).
func homography(src, dst [4][2]float64) (*mat.Dense, error) {
	a := mat.NewDense(8, 8, nil)
	v := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		x, y := src[i][0], src[i][1]
		X, Y := dst[i][0], dst[i][1]
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -X * x, -X * y})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -Y * x, -Y * y})
		v.SetVec(2*i, X)
		v.SetVec(2*i+1, Y)
	}

	var sol mat.VecDense
	if err := sol.SolveVec(a, v); err != nil {
		return nil, err
	}
	hm := mat.NewDense(3, 3, []float64{
		sol.AtVec(0), sol.AtVec(1), sol.AtVec(2),
		sol.AtVec(3), sol.AtVec(4), sol.AtVec(5),
		sol.AtVec(6), sol.AtVec(7), 1,
	})
	return hm, nil
}

// project applies a homography to one point.
func project(hm mat.Matrix, x, y float64) (float64, float64) {
	den := hm.At(2, 0)*x + hm.At(2, 1)*y + hm.At(2, 2)
	if den == 0 {
		return x, y
	}
	px := (hm.At(0, 0)*x + hm.At(0, 1)*y + hm.At(0, 2)) / den
	py := (hm.At(1, 0)*x + hm.At(1, 1)*y + hm.At(1, 2)) / den
	return px, py
}

// resample pulls every destination pixel from the inverse-mapped source
// position with bilinear interpolation.
func resample(img *image.NRGBA, fn invMap) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			sx, sy := fn(float64(x), float64(y))
			out.SetNRGBA(x, y, bilinear(img, sx, sy))
		}
	}
	return out
}
