// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestNewPixmapTarget(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
	}{
		{"small", 100, 100},
		{"medium", 800, 600},
		{"wide", 1000, 100},
		{"tall", 100, 1000},
		{"empty", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := NewPixmapTarget(tt.width, tt.height, gputypes.TextureFormatRGBA8Unorm)

			if target.Width() != tt.width {
				t.Errorf("Width() = %d, want %d", target.Width(), tt.width)
			}
			if target.Height() != tt.height {
				t.Errorf("Height() = %d, want %d", target.Height(), tt.height)
			}
			if target.Format() != gputypes.TextureFormatRGBA8Unorm {
				t.Errorf("Format() = %v, want RGBA8Unorm", target.Format())
			}
			if target.Stride() != tt.width*4 {
				t.Errorf("Stride() = %d, want %d", target.Stride(), tt.width*4)
			}
		})
	}
}

func TestPaddedPixmapTargetStride(t *testing.T) {
	target := NewPaddedPixmapTarget(10, 3, gputypes.TextureFormatRGBA8Unorm, 256)
	if target.Stride() != 256 {
		t.Errorf("Stride() = %d, want 256", target.Stride())
	}
}

func TestPixmapTargetSetPixelBGRA(t *testing.T) {
	target := NewPixmapTarget(2, 1, gputypes.TextureFormatBGRA8Unorm)
	target.SetPixel(1, 0, color.RGBA{R: 1, G: 2, B: 3, A: 4})
	target.SetPixel(5, 5, color.RGBA{R: 9}) // ignored

	target.Draw(func(pix []byte, stride int) {
		if stride != 8 {
			t.Errorf("stride = %d, want 8", stride)
		}
		if !bytes.Equal(pix[4:8], []byte{3, 2, 1, 4}) {
			t.Errorf("pixel bytes = %v, want BGRA order [3 2 1 4]", pix[4:8])
		}
	})
}

func TestPixmapReaderDepadsAndSwizzles(t *testing.T) {
	target := NewPaddedPixmapTarget(10, 4, gputypes.TextureFormatBGRA8Unorm, 256)
	target.Fill(color.RGBA{R: 10, G: 20, B: 30, A: 255})
	target.FillRect(0, 0, 1, 1, color.RGBA{R: 1, G: 2, B: 3, A: 4})

	ext, err := PixmapReader{}.ReadPixels(context.Background(), target)
	if err != nil {
		t.Fatalf("ReadPixels: %v", err)
	}
	if ext.Len() != 10*4*4 {
		t.Fatalf("len = %d, want %d (not %d)", ext.Len(), 10*4*4, 256*4)
	}
	if ext.Format != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("format = %v, want RGBA8Unorm", ext.Format)
	}
	if !bytes.Equal(ext.Pixels[:4], []byte{1, 2, 3, 4}) {
		t.Errorf("first pixel = %v, want [1 2 3 4]", ext.Pixels[:4])
	}
	if !bytes.Equal(ext.Pixels[4:8], []byte{10, 20, 30, 255}) {
		t.Errorf("second pixel = %v, want [10 20 30 255]", ext.Pixels[4:8])
	}
}

func TestPixmapReaderWideTarget(t *testing.T) {
	target := NewPaddedPixmapTarget(800, 3, gputypes.TextureFormatRGBA8Unorm, 256)
	if target.Stride() != 3328 {
		t.Fatalf("stride = %d, want 3328", target.Stride())
	}
	target.FillRect(799, 2, 800, 3, color.RGBA{R: 9, G: 8, B: 7, A: 6})

	ext, err := PixmapReader{}.ReadPixels(context.Background(), target)
	if err != nil {
		t.Fatalf("ReadPixels: %v", err)
	}
	if want := 800 * 3 * 4; ext.Len() != want {
		t.Fatalf("len = %d, want %d", ext.Len(), want)
	}
	if last := ext.Pixels[ext.Len()-4:]; !bytes.Equal(last, []byte{9, 8, 7, 6}) {
		t.Errorf("last pixel = %v, want [9 8 7 6]", last)
	}
}

func TestPixmapReaderCopies(t *testing.T) {
	target := NewPixmapTarget(2, 2, gputypes.TextureFormatRGBA8Unorm)
	ext, err := PixmapReader{}.ReadPixels(context.Background(), target)
	if err != nil {
		t.Fatalf("ReadPixels: %v", err)
	}
	target.Fill(color.RGBA{R: 255})
	if ext.Pixels[0] != 0 {
		t.Error("extract shares memory with the target")
	}
}

func TestPixmapReaderErrors(t *testing.T) {
	target := NewPixmapTarget(2, 2, gputypes.TextureFormatRGBA8Unorm)
	target.Destroy()
	if _, err := (PixmapReader{}).ReadPixels(context.Background(), target); !errors.Is(err, ErrDestroyed) {
		t.Errorf("err = %v, want ErrDestroyed", err)
	}
	if _, err := (PixmapReader{}).ReadPixels(context.Background(), &TextureTarget{}); !errors.Is(err, ErrUnsupportedTarget) {
		t.Errorf("err = %v, want ErrUnsupportedTarget", err)
	}
}

func TestPixmapAllocator(t *testing.T) {
	a := PixmapAllocator{Align: 256}
	target, err := a.Allocate(10, 2, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if target.(*PixmapTarget).Stride() != 256 {
		t.Errorf("stride = %d, want 256", target.(*PixmapTarget).Stride())
	}
	if _, err := a.Allocate(1, 1, gputypes.TextureFormatUndefined); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := a.Allocate(0, 0, gputypes.TextureFormatRGBA8Unorm); err != nil {
		t.Errorf("zero-area pixmap should be allowed: %v", err)
	}
}
