package encode

import (
	"fmt"
	"image"

	"github.com/gogpu/capture/frame"
	"github.com/gogpu/capture/pixel"
)

// CheckSize verifies that f holds exactly width*height pixels of its format.
func CheckSize(f frame.Frame, width, height int) error {
	want := pixel.ExpectedLen(width, height, f.Format)
	if want == 0 || f.Len() != want {
		return fmt.Errorf("%w: have %d bytes, want %d for %dx%d %v",
			ErrSizeMismatch, f.Len(), want, width, height, f.Format)
	}
	return nil
}

// ToImage converts f into an RGBA image of width x height.
// The frame's pixels are not modified; BGRA frames are copied.
func ToImage(f frame.Frame, width, height int) (*image.RGBA, error) {
	if err := CheckSize(f, width, height); err != nil {
		return nil, err
	}
	rgba, err := pixel.ToRGBA(f.Pixels, f.Format)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return &image.RGBA{
		Pix:    rgba,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}, nil
}
