// Package frame defines the values that flow through the capture pipeline:
// recorder identities, readback extracts and timed frames.
package frame

import (
	"time"

	"github.com/gogpu/gputypes"
)

// ID identifies one tracking session. IDs are chosen by the caller and are
// never generated by this module; callers must avoid collisions.
type ID int

// Extract is one de-padded readback of a render target.
//
// Pixels holds exactly Width*Height*bytes-per-pixel bytes in the channel
// order described by Format.
type Extract struct {
	Pixels []byte
	Width  int
	Height int
	Format gputypes.TextureFormat
}

// Len returns the number of pixel bytes.
func (e Extract) Len() int {
	return len(e.Pixels)
}

// Frame is an extract plus the wall-clock time it represents, i.e. the time
// elapsed since the previous frame ingested for the same recorder.
//
// A Frame is treated as immutable. Once it is pushed into a recorder queue
// the queue owns it; once a capture job takes it the job owns it.
type Frame struct {
	Extract
	Duration time.Duration
}

// New wraps an extract with a duration.
func New(e Extract, d time.Duration) Frame {
	if d < 0 {
		d = 0
	}
	return Frame{Extract: e, Duration: d}
}

// Zeroed wraps an extract with a zero duration.
func Zeroed(e Extract) Frame {
	return Frame{Extract: e}
}

// TotalDuration sums the durations of frames.
func TotalDuration(frames []Frame) time.Duration {
	var total time.Duration
	for i := range frames {
		total += frames[i].Duration
	}
	return total
}
