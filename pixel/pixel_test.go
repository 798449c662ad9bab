package pixel

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestBytesPerPixel(t *testing.T) {
	tests := []struct {
		format gputypes.TextureFormat
		want   int
	}{
		{gputypes.TextureFormatRGBA8Unorm, 4},
		{gputypes.TextureFormatRGBA8UnormSrgb, 4},
		{gputypes.TextureFormatBGRA8Unorm, 4},
		{gputypes.TextureFormatBGRA8UnormSrgb, 4},
		{gputypes.TextureFormatR8Unorm, 1},
		{gputypes.TextureFormatRGBA16Float, 8},
		{gputypes.TextureFormatRGBA32Float, 16},
		{gputypes.TextureFormatUndefined, 0},
	}
	for _, tt := range tests {
		if got := BytesPerPixel(tt.format); got != tt.want {
			t.Errorf("BytesPerPixel(%v) = %d, want %d", tt.format, got, tt.want)
		}
	}
}

func TestCanonicalNativeRoundTrip(t *testing.T) {
	for _, f := range []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb} {
		c := Canonical(f)
		if IsBGRA(c) {
			t.Errorf("Canonical(%v) = %v, still BGRA", f, c)
		}
		if Native(c) != f {
			t.Errorf("Native(Canonical(%v)) = %v", f, Native(c))
		}
	}
	if Canonical(gputypes.TextureFormatR8Unorm) != gputypes.TextureFormatR8Unorm {
		t.Error("Canonical should leave R8 unchanged")
	}
}

func TestSwapRB(t *testing.T) {
	buf := []byte{
		0x10, 0x20, 0x30, 0xFF,
		0xAA, 0xBB, 0xCC, 0xDD,
	}
	SwapRB(buf)
	want := []byte{
		0x30, 0x20, 0x10, 0xFF,
		0xCC, 0xBB, 0xAA, 0xDD,
	}
	if !bytes.Equal(buf, want) {
		t.Errorf("SwapRB = % X, want % X", buf, want)
	}
}

func TestSwapRBSelfInverse(t *testing.T) {
	orig := make([]byte, 4*37+3)
	for i := range orig {
		orig[i] = byte(i * 7)
	}
	buf := append([]byte(nil), orig...)
	SwapRB(buf)
	SwapRB(buf)
	if !bytes.Equal(buf, orig) {
		t.Error("SwapRB applied twice did not restore the buffer")
	}
}

func TestToRGBA(t *testing.T) {
	bgra := []byte{1, 2, 3, 4}
	got, err := ToRGBA(bgra, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		t.Fatalf("ToRGBA: %v", err)
	}
	if !bytes.Equal(got, []byte{3, 2, 1, 4}) {
		t.Errorf("ToRGBA = %v", got)
	}
	if !bytes.Equal(bgra, []byte{1, 2, 3, 4}) {
		t.Error("ToRGBA modified its input")
	}

	rgba := []byte{5, 6, 7, 8}
	got, err = ToRGBA(rgba, gputypes.TextureFormatRGBA8UnormSrgb)
	if err != nil {
		t.Fatalf("ToRGBA: %v", err)
	}
	if &got[0] != &rgba[0] {
		t.Error("ToRGBA should not copy RGBA input")
	}

	if _, err := ToRGBA(rgba, gputypes.TextureFormatRGBA16Float); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ToRGBA(float16) err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestToCanonicalRoundTrip(t *testing.T) {
	orig := []byte{9, 8, 7, 6, 5, 4, 3, 2}
	buf := append([]byte(nil), orig...)
	f := ToCanonical(buf, gputypes.TextureFormatBGRA8Unorm)
	if f != gputypes.TextureFormatRGBA8Unorm {
		t.Fatalf("format = %v", f)
	}
	ToCanonical(buf, Native(f))
	if !bytes.Equal(buf, orig) {
		t.Errorf("round trip = %v, want %v", buf, orig)
	}
}

func TestAlignedRowBytes(t *testing.T) {
	tests := []struct {
		name        string
		width, bpp  int
		align, want int
	}{
		{"800 wide pads to 13 blocks", 800, 4, 256, 3328},
		{"128 wide already aligned", 128, 4, 256, 512},
		{"narrow rounds up", 10, 4, 256, 256},
		{"exact multiple", 64, 4, 256, 256},
		{"one past multiple", 65, 4, 256, 512},
		{"no alignment", 10, 4, 0, 40},
		{"zero width", 0, 4, 256, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AlignedRowBytes(tt.width, tt.bpp, tt.align); got != tt.want {
				t.Errorf("AlignedRowBytes(%d, %d, %d) = %d, want %d", tt.width, tt.bpp, tt.align, got, tt.want)
			}
		})
	}
	if !HasPadding(800, 4, RowAlignment) {
		t.Error("3200-byte rows are not a multiple of 256 and need padding")
	}
	if HasPadding(128, 4, RowAlignment) {
		t.Error("128x4 should not need padding")
	}
	if !HasPadding(10, 4, RowAlignment) {
		t.Error("10x4 should need padding")
	}
}

func TestDepadNarrowTarget(t *testing.T) {
	const w, h, bpp = 10, 6, 4
	stride := AlignedRowBytes(w, bpp, RowAlignment)
	if stride != 256 {
		t.Fatalf("stride = %d, want 256", stride)
	}
	src := make([]byte, PaddedSize(w, h, bpp, RowAlignment))
	for y := 0; y < h; y++ {
		for x := 0; x < stride; x++ {
			if x < w*bpp {
				src[y*stride+x] = byte(y + 1)
			} else {
				src[y*stride+x] = 0xEE
			}
		}
	}
	got, err := Depad(src, w, h, bpp, stride)
	if err != nil {
		t.Fatalf("Depad: %v", err)
	}
	if len(got) != w*h*bpp {
		t.Fatalf("len = %d, want %d", len(got), w*h*bpp)
	}
	for i, b := range got {
		if b == 0xEE {
			t.Fatalf("padding byte leaked at %d", i)
		}
		if want := byte(i/(w*bpp) + 1); b != want {
			t.Fatalf("byte %d = %d, want %d", i, b, want)
		}
	}
}

func TestDepadWideTarget(t *testing.T) {
	const w, h, bpp = 800, 3, 4
	stride := AlignedRowBytes(w, bpp, RowAlignment)
	if stride != 3328 {
		t.Fatalf("stride = %d, want 3328", stride)
	}
	src := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		row := src[y*stride : (y+1)*stride]
		for x := range row {
			if x < w*bpp {
				row[x] = byte(y + 1)
			} else {
				row[x] = 0xEE
			}
		}
	}
	got, err := Depad(src, w, h, bpp, stride)
	if err != nil {
		t.Fatalf("Depad: %v", err)
	}
	if len(got) != w*h*bpp {
		t.Fatalf("len = %d, want %d", len(got), w*h*bpp)
	}
	for i, b := range got {
		if want := byte(i/(w*bpp) + 1); b != want {
			t.Fatalf("byte %d = %#x, want %d", i, b, want)
		}
	}
}

func TestDepadPropertyAllAlignments(t *testing.T) {
	for _, align := range []int{1, 4, 64, 256, 512} {
		for width := 1; width <= 70; width += 3 {
			const height, bpp = 3, 4
			stride := AlignedRowBytes(width, bpp, align)
			got, err := Depad(make([]byte, stride*height), width, height, bpp, stride)
			if err != nil {
				t.Fatalf("Depad(w=%d, align=%d): %v", width, align, err)
			}
			if len(got) != width*height*bpp {
				t.Fatalf("Depad(w=%d, align=%d) len = %d, want %d", width, align, len(got), width*height*bpp)
			}
		}
	}
}

func TestDepadTightNoCopy(t *testing.T) {
	src := make([]byte, 800*4*2)
	got, err := Depad(src, 800, 2, 4, 800*4)
	if err != nil {
		t.Fatalf("Depad: %v", err)
	}
	if &got[0] != &src[0] {
		t.Error("tight layout should not copy")
	}
}

func TestDepadErrors(t *testing.T) {
	if _, err := Depad(make([]byte, 10), 10, 2, 4, 256); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("short buffer err = %v", err)
	}
	if _, err := Depad(make([]byte, 100), 10, 2, 4, 8); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("narrow stride err = %v", err)
	}
	if _, err := Depad(nil, -1, 2, 4, 8); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("negative width err = %v", err)
	}
	got, err := Depad(nil, 0, 0, 4, 0)
	if err != nil || len(got) != 0 {
		t.Errorf("empty Depad = %v, %v", got, err)
	}
}

func TestExpectedLen(t *testing.T) {
	if got := ExpectedLen(800, 600, gputypes.TextureFormatRGBA8Unorm); got != 800*600*4 {
		t.Errorf("ExpectedLen = %d", got)
	}
	if got := ExpectedLen(-1, 600, gputypes.TextureFormatRGBA8Unorm); got != 0 {
		t.Errorf("ExpectedLen(negative) = %d", got)
	}
}
