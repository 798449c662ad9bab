// Package encode defines the format-independent side of capture output:
// the Encoder interface implemented by each output format, the input it
// receives and a registry of formats by name.
//
// Format packages register themselves on import, following the
// database/sql driver pattern:
//
//	import _ "github.com/gogpu/capture/encode/png"
//
//	enc, err := encode.New("png")
package encode

import (
	"errors"
	"image"
	"io"

	"github.com/gogpu/capture/frame"
)

// Encoding errors.
var (
	// ErrNoFrames is returned when an encoder receives no frames.
	ErrNoFrames = errors.New("encode: no frames")

	// ErrSizeMismatch is returned when a frame's byte length does not match
	// its dimensions and format.
	ErrSizeMismatch = errors.New("encode: frame size mismatch")

	// ErrWatermarkUnsupported is returned for inputs that request a
	// watermark. Compositing is not implemented by any encoder.
	ErrWatermarkUnsupported = errors.New("encode: watermarks are not supported")
)

// Encoder turns a set of frames into the bytes of one output file.
//
// Encode runs on a worker goroutine and owns in for the duration of the
// call. Implementations must be safe for concurrent use.
type Encoder interface {
	// Name returns the registry name of the format, e.g. "png".
	Name() string

	// Extension returns the file extension without the dot.
	Extension() string

	// Encode writes in to w.
	Encode(w io.Writer, in Input) error
}

// Input is the frame set handed to an Encoder.
type Input struct {
	// Width and Height are the recorder target dimensions shared by every
	// frame.
	Width  int
	Height int

	// Frames holds the frames to encode, oldest first. Still formats use
	// the last frame.
	Frames []frame.Frame

	// Watermark is an optional overlay for still formats.
	Watermark *Watermark

	// Options carries per-request, format-specific parameters. Encoders
	// ignore values of types they do not recognize.
	Options any
}

// Newest returns the last frame of the input.
func (in Input) Newest() (frame.Frame, error) {
	if len(in.Frames) == 0 {
		return frame.Frame{}, ErrNoFrames
	}
	return in.Frames[len(in.Frames)-1], nil
}

// Anchor is the edge or corner a watermark is aligned to.
type Anchor uint8

// Watermark anchors.
const (
	TopLeft Anchor = iota
	TopCentre
	TopRight
	CentreLeft
	Centre
	CentreRight
	BottomLeft
	BottomCentre
	BottomRight
)

var anchorNames = [...]string{
	"top-left", "top-centre", "top-right",
	"centre-left", "centre", "centre-right",
	"bottom-left", "bottom-centre", "bottom-right",
}

// String returns the anchor name.
func (a Anchor) String() string {
	if int(a) < len(anchorNames) {
		return anchorNames[a]
	}
	return "unknown"
}

// Alignment places a watermark: the anchor plus pixel margins from the
// anchored edges. Margins toward a centred axis are ignored.
type Alignment struct {
	Anchor  Anchor
	OffsetX int
	OffsetY int
}

// Watermark describes an overlay image for still captures.
type Watermark struct {
	Image image.Image
	Align Alignment
}
