package imaging

import "errors"

var (
	// ErrDecode indicates the supplied bytes could not be interpreted as a
	// raster image. Callers surface this as an invalid upload.
	ErrDecode = errors.New("imaging: undecodable image data")

	// ErrEmptyImage indicates an input with zero width or height.
	ErrEmptyImage = errors.New("imaging: image has zero width or height")
)
