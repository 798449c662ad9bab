package render

import (
	"context"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/capture/frame"
	"github.com/gogpu/capture/pixel"
)

// PixmapAllocator creates CPU-backed targets. Align pads rows the way a
// device copy would; zero keeps rows tight.
type PixmapAllocator struct {
	Align int
}

// Allocate creates a PixmapTarget. Zero-area targets are allowed.
func (a PixmapAllocator) Allocate(width, height int, format gputypes.TextureFormat) (Target, error) {
	if pixel.BytesPerPixel(format) == 0 {
		return nil, fmt.Errorf("allocate %v: %w", format, ErrUnsupportedFormat)
	}
	return NewPaddedPixmapTarget(width, height, format, a.Align), nil
}

// PixmapReader reads PixmapTargets with the same de-pad and swizzle path as
// the device readback.
type PixmapReader struct{}

// ReadPixels copies the target's rows and returns them tightly packed in
// red-first order.
func (PixmapReader) ReadPixels(ctx context.Context, target Target) (frame.Extract, error) {
	pt, ok := target.(*PixmapTarget)
	if !ok {
		return frame.Extract{}, ErrUnsupportedTarget
	}
	if err := ctx.Err(); err != nil {
		return frame.Extract{}, err
	}
	raw, ok := pt.snapshot()
	if !ok {
		return frame.Extract{}, ErrDestroyed
	}
	bpp := pixel.BytesPerPixel(pt.format)
	tight, err := pixel.Depad(raw, pt.width, pt.height, bpp, pt.stride)
	if err != nil {
		return frame.Extract{}, fmt.Errorf("readback: %w", err)
	}
	format := pixel.ToCanonical(tight, pt.format)
	return frame.Extract{Pixels: tight, Width: pt.width, Height: pt.height, Format: format}, nil
}

// PixmapBackend is the CPU counterpart of HALBackend.
type PixmapBackend struct {
	PixmapAllocator
	PixmapReader
}

var (
	_ Backend = PixmapBackend{}
	_ Reader  = PixmapReader{}
)
