package imaging

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Composite overlays a line-art mask onto a color render using a multiply
// blend. The render's resolution is authoritative: when the mask dimensions
// differ it is resampled to match with a Catmull-Rom filter. The mask is
// reduced to grayscale and applied identically to all three channels, so the
// blend only darkens, never tints.
//
// Per channel the result is exactly round(render*mask/255): a white mask
// pixel leaves the render untouched, a black one forces the output to black.
func Composite(render image.Image, mask image.Image) (*image.RGBA, error) {
	rb, mb := render.Bounds(), mask.Bounds()
	if rb.Dx() <= 0 || rb.Dy() <= 0 || mb.Dx() <= 0 || mb.Dy() <= 0 {
		return nil, ErrEmptyImage
	}

	w, h := rb.Dx(), rb.Dy()

	grayMask := ToGray(mask)
	if grayMask.Bounds().Dx() != w || grayMask.Bounds().Dy() != h {
		scaled := image.NewGray(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), grayMask, grayMask.Bounds(), xdraw.Src, nil)
		grayMask = scaled
	}

	src := ToRGBA(render)
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m := uint32(grayMask.Pix[y*grayMask.Stride+x])
			i := y*src.Stride + x*4
			o := y*out.Stride + x*4
			// (v*m + 127) / 255 rounds v*m/255 to nearest; exact halves
			// cannot occur with integer products.
			out.Pix[o+0] = uint8((uint32(src.Pix[i+0])*m + 127) / 255)
			out.Pix[o+1] = uint8((uint32(src.Pix[i+1])*m + 127) / 255)
			out.Pix[o+2] = uint8((uint32(src.Pix[i+2])*m + 127) / 255)
			out.Pix[o+3] = 255
		}
	}
	return out, nil
}
