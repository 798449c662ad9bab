// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"image/color"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/capture/pixel"
)

// Target is an offscreen render target owned by one recorder.
//
// Targets are created by an Allocator and released with Destroy when the
// recorder is torn down. Destroy is safe to call more than once.
type Target interface {
	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// Format returns the pixel format of the target.
	Format() gputypes.TextureFormat

	// Destroy releases the resources behind the target.
	Destroy()
}

// PixmapTarget is a CPU-backed render target.
//
// Rows are Stride bytes apart and Stride may be larger than
// Width*bytes-per-pixel, which mirrors the row padding of device copies.
// Pixels are stored in the target's native channel order.
//
// Example:
//
//	target := render.NewPixmapTarget(800, 600, gputypes.TextureFormatBGRA8Unorm)
//	target.Fill(color.RGBA{R: 255, A: 255})
type PixmapTarget struct {
	mu        sync.RWMutex
	width     int
	height    int
	stride    int
	format    gputypes.TextureFormat
	pix       []byte
	destroyed bool
}

// NewPixmapTarget creates a tightly packed CPU-backed target.
func NewPixmapTarget(width, height int, format gputypes.TextureFormat) *PixmapTarget {
	return NewPaddedPixmapTarget(width, height, format, 0)
}

// NewPaddedPixmapTarget creates a CPU-backed target whose rows are padded to
// a multiple of align bytes.
func NewPaddedPixmapTarget(width, height int, format gputypes.TextureFormat, align int) *PixmapTarget {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	stride := pixel.AlignedRowBytes(width, pixel.BytesPerPixel(format), align)
	return &PixmapTarget{
		width:  width,
		height: height,
		stride: stride,
		format: format,
		pix:    make([]byte, stride*height),
	}
}

// Width returns the target width in pixels.
func (t *PixmapTarget) Width() int { return t.width }

// Height returns the target height in pixels.
func (t *PixmapTarget) Height() int { return t.height }

// Format returns the pixel format.
func (t *PixmapTarget) Format() gputypes.TextureFormat { return t.format }

// Stride returns the number of bytes between the starts of two rows.
func (t *PixmapTarget) Stride() int { return t.stride }

// Draw runs fn with exclusive access to the raw pixel rows.
func (t *PixmapTarget) Draw(fn func(pix []byte, stride int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.pix, t.stride)
}

// SetPixel sets one pixel, converting c to the target's channel order.
// Coordinates outside the target are ignored.
func (t *PixmapTarget) SetPixel(x, y int, c color.RGBA) {
	if x < 0 || y < 0 || x >= t.width || y >= t.height {
		return
	}
	t.mu.Lock()
	t.putLocked(x, y, c)
	t.mu.Unlock()
}

// Fill sets every pixel to c.
func (t *PixmapTarget) Fill(c color.RGBA) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for y := 0; y < t.height; y++ {
		for x := 0; x < t.width; x++ {
			t.putLocked(x, y, c)
		}
	}
}

// FillRect sets the pixels of [x0,x1) x [y0,y1) to c, clipped to the target.
func (t *PixmapTarget) FillRect(x0, y0, x1, y1 int, c color.RGBA) {
	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, t.width), min(y1, t.height)
	t.mu.Lock()
	defer t.mu.Unlock()
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			t.putLocked(x, y, c)
		}
	}
}

func (t *PixmapTarget) putLocked(x, y int, c color.RGBA) {
	if pixel.BytesPerPixel(t.format) != 4 {
		return
	}
	off := y*t.stride + x*4
	p := t.pix[off : off+4 : off+4]
	if pixel.IsBGRA(t.format) {
		p[0], p[1], p[2], p[3] = c.B, c.G, c.R, c.A
		return
	}
	p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
}

// snapshot copies the raw rows under the read lock.
func (t *PixmapTarget) snapshot() ([]byte, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.destroyed {
		return nil, false
	}
	out := make([]byte, len(t.pix))
	copy(out, t.pix)
	return out, true
}

// Destroy releases the pixel memory.
func (t *PixmapTarget) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.destroyed = true
	t.pix = nil
}

// Ensure PixmapTarget implements Target.
var _ Target = (*PixmapTarget)(nil)

// TextureTarget is a GPU texture-backed render target created by a
// HALBackend. Hosts render into View; the backend copies Texture back.
type TextureTarget struct {
	mu      sync.Mutex
	device  hal.Device
	texture hal.Texture
	view    hal.TextureView
	width   int
	height  int
	format  gputypes.TextureFormat
}

// Width returns the target width in pixels.
func (t *TextureTarget) Width() int { return t.width }

// Height returns the target height in pixels.
func (t *TextureTarget) Height() int { return t.height }

// Format returns the texture format.
func (t *TextureTarget) Format() gputypes.TextureFormat { return t.format }

// Texture returns the underlying HAL texture, or nil after Destroy.
func (t *TextureTarget) Texture() hal.Texture {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.texture
}

// View returns the texture view the host renders into, or nil after Destroy.
func (t *TextureTarget) View() hal.TextureView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view
}

// Destroy releases the texture and its view.
func (t *TextureTarget) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.texture != nil {
		t.device.DestroyTexture(t.texture)
		t.texture = nil
	}
}

// Ensure TextureTarget implements Target.
var _ Target = (*TextureTarget)(nil)
