package codec

import (
	"image"
	"math"
)

// Similarity measures perceptual similarity in [0,1]; 1 means identical.
type Similarity interface {
	Similarity(a, b image.Image) float64
}

// SimilarityFunc adapts a function to Similarity.
type SimilarityFunc func(a, b image.Image) float64

// Similarity calls f(a, b).
func (f SimilarityFunc) Similarity(a, b image.Image) float64 { return f(a, b) }

const (
	ssimWindow = 8
	ssimC1     = (0.01 * 255) * (0.01 * 255)
	ssimC2     = (0.03 * 255) * (0.03 * 255)
)

// SSIM computes the mean structural similarity of the luma channels over
// 8x8 windows with a stride of 4. Images of different sizes score 0.
type SSIM struct{}

// Similarity implements Similarity.
func (SSIM) Similarity(a, b image.Image) float64 {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() || ab.Empty() {
		return 0
	}
	w, h := ab.Dx(), ab.Dy()
	la, lb := luma(a), luma(b)

	win := min(ssimWindow, w, h)
	stride := max(win/2, 1)

	var sum float64
	var n int
	for y := 0; y+win <= h; y += stride {
		for x := 0; x+win <= w; x += stride {
			sum += windowSSIM(la, lb, w, x, y, win)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Max(0, math.Min(1, sum/float64(n)))
}

func windowSSIM(la, lb []float64, stride, x0, y0, win int) float64 {
	var sa, sb, saa, sbb, sab float64
	for y := y0; y < y0+win; y++ {
		row := y * stride
		for x := x0; x < x0+win; x++ {
			va, vb := la[row+x], lb[row+x]
			sa += va
			sb += vb
			saa += va * va
			sbb += vb * vb
			sab += va * vb
		}
	}
	n := float64(win * win)
	ma, mb := sa/n, sb/n
	va := saa/n - ma*ma
	vb := sbb/n - mb*mb
	cov := sab/n - ma*mb
	return ((2*ma*mb + ssimC1) * (2*cov + ssimC2)) /
		((ma*ma + mb*mb + ssimC1) * (va + vb + ssimC2))
}

// luma returns Rec. 601 luma in [0,255], row-major.
func luma(img image.Image) []float64 {
	b := img.Bounds()
	out := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out = append(out, (0.299*float64(r)+0.587*float64(g)+0.114*float64(bl))/257)
		}
	}
	return out
}
