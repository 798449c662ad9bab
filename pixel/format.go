// Package pixel provides the byte-layout helpers shared by readback and
// encoding: per-format pixel sizes, channel swizzles and row de-padding.
package pixel

import (
	"errors"

	"github.com/gogpu/gputypes"
)

// Pixel errors.
var (
	// ErrUnsupportedFormat is returned when a buffer is not 8-bit, 4-channel.
	ErrUnsupportedFormat = errors.New("pixel: unsupported texture format")

	// ErrShortBuffer is returned when a buffer holds fewer bytes than its
	// layout requires.
	ErrShortBuffer = errors.New("pixel: buffer too short for layout")

	// ErrInvalidLayout is returned for negative dimensions or a stride
	// narrower than one row of pixels.
	ErrInvalidLayout = errors.New("pixel: invalid layout")
)

// BytesPerPixel returns the size of one pixel of format in bytes, or 0 if
// the format is not a plain color format.
func BytesPerPixel(format gputypes.TextureFormat) int {
	switch format {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRG8Unorm:
		return 2
	case gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatRGBA8Snorm,
		gputypes.TextureFormatRGBA8Uint,
		gputypes.TextureFormatRGBA8Sint,
		gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatBGRA8UnormSrgb:
		return 4
	case gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatRGBA32Float:
		return 16
	default:
		return 0
	}
}

// IsBGRA reports whether format stores blue before red.
func IsBGRA(format gputypes.TextureFormat) bool {
	return format == gputypes.TextureFormatBGRA8Unorm ||
		format == gputypes.TextureFormatBGRA8UnormSrgb
}

// IsRGBA8 reports whether format is an 8-bit, 4-channel format in
// red-green-blue-alpha order.
func IsRGBA8(format gputypes.TextureFormat) bool {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatRGBA8Snorm,
		gputypes.TextureFormatRGBA8Uint,
		gputypes.TextureFormatRGBA8Sint:
		return true
	}
	return false
}

// Canonical returns the red-first equivalent of format. Formats that are
// already red-first are returned unchanged.
func Canonical(format gputypes.TextureFormat) gputypes.TextureFormat {
	switch format {
	case gputypes.TextureFormatBGRA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm
	case gputypes.TextureFormatBGRA8UnormSrgb:
		return gputypes.TextureFormatRGBA8UnormSrgb
	default:
		return format
	}
}

// Native returns the blue-first equivalent of an RGBA8 unorm format, the
// inverse of Canonical. Other formats are returned unchanged.
func Native(format gputypes.TextureFormat) gputypes.TextureFormat {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm:
		return gputypes.TextureFormatBGRA8Unorm
	case gputypes.TextureFormatRGBA8UnormSrgb:
		return gputypes.TextureFormatBGRA8UnormSrgb
	default:
		return format
	}
}

// ExpectedLen returns width*height*BytesPerPixel(format).
func ExpectedLen(width, height int, format gputypes.TextureFormat) int {
	if width <= 0 || height <= 0 {
		return 0
	}
	return width * height * BytesPerPixel(format)
}
