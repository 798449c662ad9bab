package capture

import (
	"time"

	"github.com/gogpu/capture/camera"
	"github.com/gogpu/capture/encode"
	"github.com/gogpu/capture/frame"
)

// ID identifies a tracking session. IDs are chosen by the caller.
type ID = frame.ID

// Request kinds reported in Outcome.Kind.
const (
	KindStart     = "start"
	KindStop      = "stop"
	KindStill     = "still"
	KindAnimation = "animation"
)

// PostCapture is what happens to a recorder after a capture request.
type PostCapture uint8

const (
	// Continue keeps the recorder tracking.
	Continue PostCapture = iota

	// Stop stops the recorder once the capture has taken its frames, as if
	// a StopTracking request had been applied in the same tick.
	Stop
)

// String returns the disposition name.
func (p PostCapture) String() string {
	if p == Stop {
		return "stop"
	}
	return "continue"
}

// StartTracking asks for a recorder mirroring Camera.
type StartTracking struct {
	Camera camera.Ref
	ID     ID

	// Window is the span of recent frames to keep. Zero uses
	// Config.DefaultWindow.
	Window time.Duration
}

// StopTracking asks for the recorder ID to be torn down.
type StopTracking struct {
	ID ID
}

// Watermark and Alignment describe still-image overlays. Requests carrying
// a watermark fail with encode.ErrWatermarkUnsupported.
type (
	Watermark = encode.Watermark
	Alignment = encode.Alignment
)

// StillParams are the parameters of a still capture.
type StillParams struct {
	// Format names the encoder. Empty uses Config.StillFormat.
	Format string

	Watermark *Watermark
}

// AnimationParams are the parameters of an animation capture. Zero fields
// use the configured defaults.
type AnimationParams struct {
	// Format names the encoder. Empty uses Config.AnimationFormat.
	Format string

	// Colors is the palette size per frame.
	Colors int

	// Scale shrinks frames, 0 < Scale <= 1.
	Scale float64

	// SampleFactor builds palettes from every SampleFactor-th pixel.
	SampleFactor int
}

// CaptureStill asks for the newest frame of a recorder to be saved.
type CaptureStill struct {
	ID ID

	// Path is the output path. Empty selects "<unix seconds>.<ext>".
	Path string

	Then   PostCapture
	Params StillParams
}

// CaptureAnimation asks for the whole window of a recorder to be saved as
// one animation. The recorder's queue restarts empty.
type CaptureAnimation struct {
	ID ID

	// Path is the output path. Empty selects "<unix seconds>.<ext>".
	Path string

	Then   PostCapture
	Params AnimationParams
}

// Outcome reports how one request ended.
type Outcome struct {
	ID   ID
	Kind string

	// Path is where a capture was stored.
	Path string

	Err error
}

// Ticket receives the single Outcome of a request and is then closed.
type Ticket <-chan Outcome

// Wait blocks for the outcome.
func (t Ticket) Wait() Outcome {
	return <-t
}

// pending is a queued request and the channel of its ticket.
type pending[T any] struct {
	req T
	out chan Outcome
}

func newPending[T any](req T) pending[T] {
	return pending[T]{req: req, out: make(chan Outcome, 1)}
}

// resolve delivers the outcome. It never blocks.
func (p pending[T]) resolve(o Outcome) {
	p.out <- o
	close(p.out)
}
