package imaging

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// DefaultJPEGQuality keeps the overlaid line detail visible in exported
// composites; anything below ~90 starts to smear thin strokes.
const DefaultJPEGQuality = 95

// DefaultWebPQuality is used for gallery previews where size matters more
// than archival fidelity.
const DefaultWebPQuality = 90

// EncodeJPEG writes img as JPEG. A non-positive quality selects
// DefaultJPEGQuality.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("imaging: encode jpeg: %w", err)
	}
	return nil
}

// EncodePNG writes img as PNG. Used for cleaned sketches, where lossless
// encoding keeps the binary guarantee intact.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("imaging: encode png: %w", err)
	}
	return nil
}

// EncodeWebP writes img as lossy WebP at the given quality. A non-positive
// quality selects DefaultWebPQuality.
func EncodeWebP(w io.Writer, img image.Image, quality float32) error {
	if quality <= 0 {
		quality = DefaultWebPQuality
	}
	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, quality)
	if err != nil {
		return fmt.Errorf("imaging: webp encoder options: %w", err)
	}
	if err := webp.Encode(w, img, opts); err != nil {
		return fmt.Errorf("imaging: encode webp: %w", err)
	}
	return nil
}
