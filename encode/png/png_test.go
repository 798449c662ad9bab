package png

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	stdpng "image/png"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/capture/encode"
	"github.com/gogpu/capture/frame"
)

func solid(w, h int, c color.RGBA, format gputypes.TextureFormat) frame.Frame {
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
	return frame.Zeroed(frame.Extract{Pixels: pix, Width: w, Height: h, Format: format})
}

func TestEncodeNewestFrame(t *testing.T) {
	in := encode.Input{
		Width:  4,
		Height: 3,
		Frames: []frame.Frame{
			solid(4, 3, color.RGBA{R: 255, A: 255}, gputypes.TextureFormatRGBA8Unorm),
			solid(4, 3, color.RGBA{G: 255, A: 255}, gputypes.TextureFormatRGBA8Unorm),
		},
	}
	var buf bytes.Buffer
	if err := New(Options{}).Encode(&buf, in); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	img, err := stdpng.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 4, 3) {
		t.Errorf("bounds = %v", img.Bounds())
	}
	r, g, _, _ := img.At(2, 1).RGBA()
	if r != 0 || g != 0xffff {
		t.Errorf("pixel = r%d g%d, want the newest (green) frame", r>>8, g>>8)
	}
}

func TestEncodeBGRA(t *testing.T) {
	// Stored blue-first: bytes 10,20,30 mean R=30 G=20 B=10.
	f := frame.Zeroed(frame.Extract{Pixels: []byte{10, 20, 30, 255}, Width: 1, Height: 1, Format: gputypes.TextureFormatBGRA8Unorm})
	var buf bytes.Buffer
	if err := New(Options{Compression: stdpng.BestSpeed}).Encode(&buf, encode.Input{Width: 1, Height: 1, Frames: []frame.Frame{f}}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := stdpng.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA)
	if got != (color.RGBA{R: 30, G: 20, B: 10, A: 255}) {
		t.Errorf("pixel = %v, want R30 G20 B10", got)
	}
}

func TestEncodeErrors(t *testing.T) {
	good := solid(2, 2, color.RGBA{A: 255}, gputypes.TextureFormatRGBA8Unorm)
	tests := []struct {
		name string
		in   encode.Input
		want error
	}{
		{"no frames", encode.Input{Width: 2, Height: 2}, encode.ErrNoFrames},
		{"size mismatch", encode.Input{Width: 3, Height: 2, Frames: []frame.Frame{good}}, encode.ErrSizeMismatch},
		{"watermark", encode.Input{Width: 2, Height: 2, Frames: []frame.Frame{good},
			Watermark: &encode.Watermark{Align: encode.Alignment{Anchor: encode.BottomRight}}}, encode.ErrWatermarkUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := New(Options{}).Encode(&buf, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if buf.Len() != 0 {
				t.Error("nothing should be written on error")
			}
		})
	}
}

func TestRegistered(t *testing.T) {
	enc, err := encode.New(Name)
	if err != nil {
		t.Fatalf("encode.New: %v", err)
	}
	if enc.Extension() != "png" {
		t.Errorf("Extension() = %q", enc.Extension())
	}
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		in   string
		want stdpng.CompressionLevel
	}{
		{"", stdpng.DefaultCompression},
		{"default", stdpng.DefaultCompression},
		{"none", stdpng.NoCompression},
		{"Speed", stdpng.BestSpeed},
		{"best", stdpng.BestCompression},
	}
	for _, tt := range tests {
		got, err := ParseCompression(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseCompression(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseCompression("max"); err == nil {
		t.Error("unknown level should fail")
	}
}
