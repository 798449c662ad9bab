package pixel

import "github.com/gogpu/gputypes"

// SwapRB swaps the first and third byte of every 4-byte pixel in place.
// Applying it twice restores the original buffer, so it converts BGRA to
// RGBA and back. A trailing partial pixel is left untouched.
func SwapRB(buf []byte) {
	n := len(buf) &^ 3
	for i := 0; i < n; i += 4 {
		buf[i], buf[i+2] = buf[i+2], buf[i]
	}
}

// ToRGBA returns buf in red-green-blue-alpha order.
//
// RGBA8 input is returned as is. BGRA8 input is copied and swizzled so the
// caller's buffer is never modified. Any other format yields
// ErrUnsupportedFormat.
func ToRGBA(buf []byte, format gputypes.TextureFormat) ([]byte, error) {
	switch {
	case IsRGBA8(format):
		return buf, nil
	case IsBGRA(format):
		out := make([]byte, len(buf))
		copy(out, buf)
		SwapRB(out)
		return out, nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ToCanonical converts buf in place to the channel order of
// Canonical(format) and returns that format.
func ToCanonical(buf []byte, format gputypes.TextureFormat) gputypes.TextureFormat {
	if IsBGRA(format) {
		SwapRB(buf)
	}
	return Canonical(format)
}
