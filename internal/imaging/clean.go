package imaging

import (
	"image"
	"math"
)

// Defaults chosen empirically for photographed pencil sketches: a 31 pixel
// window rides over smooth lighting gradients, and a bias of 5 drops paper
// grain without eating faint construction lines.
const (
	DefaultCleanWindow = 31
	DefaultCleanBias   = 5
)

// CleanOptions tunes the adaptive binarization. The zero value selects the
// defaults above.
type CleanOptions struct {
	// Window is the side of the square neighborhood used to compute the
	// local threshold. Must be odd; even values are rounded up.
	Window int
	// Bias is subtracted from the local weighted mean before comparison.
	// Higher values remove more faint marks, lower values keep more detail
	// at the cost of retaining noise.
	Bias float64
}

func (o CleanOptions) withDefaults() CleanOptions {
	if o.Window <= 0 {
		o.Window = DefaultCleanWindow
	}
	if o.Window%2 == 0 {
		o.Window++
	}
	if o.Bias == 0 {
		o.Bias = DefaultCleanBias
	}
	return o
}

// Clean converts a raster sketch into a strictly binary line drawing: black
// (0) strokes on a white (255) background. Color input is first reduced to
// grayscale. Each pixel is compared against a Gaussian-weighted mean of its
// neighborhood minus a small bias, so shadows and uneven lighting across the
// page do not swallow the drawing the way a single global threshold would.
//
// The output has exactly the input's dimensions and every pixel is 0 or 255.
// The transform is deterministic and performs no I/O.
func Clean(img image.Image, opts CleanOptions) (*image.Gray, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptyImage
	}
	opts = opts.withDefaults()

	gray := ToGray(img)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()

	mean := localGaussianMean(gray, opts.Window)

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float64(gray.GrayAt(x, y).Y)
			if v < mean[y*w+x]-opts.Bias {
				out.Pix[y*out.Stride+x] = 0
			} else {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out, nil
}

// localGaussianMean computes, for every pixel, the Gaussian-weighted mean of
// the window×window neighborhood. The blur is separable so two 1-D passes
// suffice. Windows that would reach past the image edge are clamped: edge
// pixels are replicated, which keeps the kernel weights normalized without a
// per-pixel correction.
func localGaussianMean(gray *image.Gray, window int) []float64 {
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	kernel := gaussianKernel(window)
	radius := window / 2

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for x := 0; x < w; x++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				sum += kernel[k+radius] * float64(row[clamp(x+k, w)])
			}
			tmp[y*w+x] = sum
		}
	}

	mean := make([]float64, w*h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				sum += kernel[k+radius] * tmp[clamp(y+k, h)*w+x]
			}
			mean[y*w+x] = sum
		}
	}
	return mean
}

// gaussianKernel builds a normalized 1-D kernel whose sigma follows the usual
// size-derived formula, matching the behavior of common image toolkits.
func gaussianKernel(size int) []float64 {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	center := size / 2
	kernel := make([]float64, size)
	var sum float64
	for i := range kernel {
		d := float64(i - center)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
