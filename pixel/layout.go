package pixel

// RowAlignment is the WebGPU COPY_BYTES_PER_ROW_ALIGNMENT: texture to
// buffer copies must use a bytes-per-row that is a multiple of it.
const RowAlignment = 256

// AlignedRowBytes returns width*bpp rounded up to a multiple of align.
// Rows that are already aligned keep their size. An align of 0 or 1
// disables alignment.
func AlignedRowBytes(width, bpp, align int) int {
	row := width * bpp
	if align <= 1 || row <= 0 {
		return row
	}
	return (row + align - 1) / align * align
}

// PaddedSize returns the staging buffer size for an aligned copy of a
// width x height image.
func PaddedSize(width, height, bpp, align int) int {
	if height <= 0 {
		return 0
	}
	return AlignedRowBytes(width, bpp, align) * height
}

// HasPadding reports whether rows of width pixels need filler bytes to
// reach align.
func HasPadding(width, bpp, align int) bool {
	return AlignedRowBytes(width, bpp, align) > width*bpp
}

// Depad removes per-row filler from src, whose rows are stride bytes apart,
// and returns exactly width*height*bpp bytes.
//
// When stride equals width*bpp the leading bytes of src are returned
// without copying. Otherwise a new tightly packed buffer is returned.
func Depad(src []byte, width, height, bpp, stride int) ([]byte, error) {
	if width < 0 || height < 0 || bpp <= 0 {
		return nil, ErrInvalidLayout
	}
	row := width * bpp
	if stride < row {
		return nil, ErrInvalidLayout
	}
	if height == 0 || row == 0 {
		return []byte{}, nil
	}
	// The last row does not need its trailing filler.
	need := stride*(height-1) + row
	if len(src) < need {
		return nil, ErrShortBuffer
	}
	if stride == row {
		return src[:row*height], nil
	}
	tight := make([]byte, row*height)
	for y := 0; y < height; y++ {
		srcOff := y * stride
		dstOff := y * row
		copy(tight[dstOff:dstOff+row], src[srcOff:srcOff+row])
	}
	return tight, nil
}
