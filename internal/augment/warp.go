package augment

import (
	"image"
	"math"

	"go-ocr-synth/internal/sample"
	"go-ocr-synth/pkg/models"
)

// Elastic warps the surface with a random displacement field: per-pixel
// uniform noise smoothed by a Gaussian of width sigma and scaled by alpha.
func Elastic(img *image.NRGBA, boxes []models.CharacterBox, alpha, sigma float64, rng *sample.RNG) (*image.NRGBA, []models.CharacterBox) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img, boxes
	}

	dx := make([]float64, w*h)
	dy := make([]float64, w*h)
	for i := range dx {
		dx[i] = rng.Uniform(-1, 1)
		dy[i] = rng.Uniform(-1, 1)
	}
	gaussianSmooth(dx, w, h, sigma)
	gaussianSmooth(dy, w, h, sigma)

	return warp(img, boxes, func(x, y float64) (float64, float64) {
		i := int(y)*w + int(x)
		return x + dx[i]*alpha, y + dy[i]*alpha
	})
}

// Grid perturbs a coarse steps x steps lattice of control points by up to
// limit of a cell size and interpolates the displacement field between them
// with Catmull-Rom splines.
func Grid(img *image.NRGBA, boxes []models.CharacterBox, steps int, limit float64, rng *sample.RNG) (*image.NRGBA, []models.CharacterBox) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || steps < 2 {
		return img, boxes
	}

	nodes := steps + 1
	cellW := float64(w) / float64(steps)
	cellH := float64(h) / float64(steps)

	offX := make([]float64, nodes*nodes)
	offY := make([]float64, nodes*nodes)
	for i := range offX {
		offX[i] = rng.Uniform(-1, 1) * limit * cellW
		offY[i] = rng.Uniform(-1, 1) * limit * cellH
	}

	node := func(field []float64, gx, gy int) float64 {
		if gx < 0 {
			gx = 0
		} else if gx >= nodes {
			gx = nodes - 1
		}
		if gy < 0 {
			gy = 0
		} else if gy >= nodes {
			gy = nodes - 1
		}
		return field[gy*nodes+gx]
	}
	fieldAt := func(field []float64, fx, fy float64) float64 {
		gx := int(math.Floor(fx))
		gy := int(math.Floor(fy))
		tx := fx - float64(gx)
		ty := fy - float64(gy)
		var rows [4]float64
		for r := -1; r <= 2; r++ {
			rows[r+1] = catmullRom(
				node(field, gx-1, gy+r),
				node(field, gx, gy+r),
				node(field, gx+1, gy+r),
				node(field, gx+2, gy+r),
				tx,
			)
		}
		return catmullRom(rows[0], rows[1], rows[2], rows[3], ty)
	}

	return warp(img, boxes, func(x, y float64) (float64, float64) {
		fx := x / cellW
		fy := y / cellH
		return x + fieldAt(offX, fx, fy), y + fieldAt(offY, fx, fy)
	})
}

// Optical applies single-coefficient radial distortion about the surface
// center: positive coefficients pull edges inward (pincushion), negative
// push them out (barrel).
func Optical(img *image.NRGBA, boxes []models.CharacterBox, k float64) (*image.NRGBA, []models.CharacterBox) {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if w == 0 || h == 0 {
		return img, boxes
	}
	cx, cy := w/2, h/2

	return warp(img, boxes, func(x, y float64) (float64, float64) {
		nx := (x - cx) / cx
		ny := (y - cy) / cy
		factor := 1 + k*(nx*nx+ny*ny)
		return cx + (x-cx)*factor, cy + (y-cy)*factor
	})
}

func catmullRom(p0, p1, p2, p3, t float64) float64 {
	t2 := t * t
	t3 := t2 * t
	return 0.5 * (2*p1 +
		(p2-p0)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(3*p1-3*p2+p3-p0)*t3)
}

// gaussianSmooth blurs a float field in place with a separable kernel;
// the kernel radius is 3 sigma.
func gaussianSmooth(field []float64, w, h int, sigma float64) {
	if sigma <= 0 {
		return
	}
	r := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*r+1)
	sum := 0.0
	for i := -r; i <= r; i++ {
		kernel[i+r] = math.Exp(-float64(i*i) / (2 * sigma * sigma))
		sum += kernel[i+r]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	tmp := make([]float64, len(field))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc := 0.0
			for i := -r; i <= r; i++ {
				sx := x + i
				if sx < 0 {
					sx = 0
				} else if sx >= w {
					sx = w - 1
				}
				acc += field[y*w+sx] * kernel[i+r]
			}
			tmp[y*w+x] = acc
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc := 0.0
			for i := -r; i <= r; i++ {
				sy := y + i
				if sy < 0 {
					sy = 0
				} else if sy >= h {
					sy = h - 1
				}
				acc += tmp[sy*w+x] * kernel[i+r]
			}
			field[y*w+x] = acc
		}
	}
}
