package dispatch

import (
	"github.com/gogpu/capture/frame"
	"github.com/gogpu/capture/recorder"
)

// Output kinds.
const (
	KindStill     = "still"
	KindAnimation = "animation"
)

// Source selects the frames a capture kind takes from a recorder.
//
// Peek returns the frames without changing the queue. Commit applies the
// take once the frames were validated and a job owns them.
type Source interface {
	Kind() string
	Peek(rec *recorder.Recorder) ([]frame.Frame, bool)
	Commit(rec *recorder.Recorder)
}

// Newest takes the most recent frame and leaves it queued, so repeated
// stills may reuse the same frame.
type Newest struct{}

// Kind implements Source.
func (Newest) Kind() string { return KindStill }

// Peek implements Source.
func (Newest) Peek(rec *recorder.Recorder) ([]frame.Frame, bool) {
	f, ok := rec.Queue.Newest()
	if !ok {
		return nil, false
	}
	return []frame.Frame{f}, true
}

// Commit implements Source. The frame stays queued.
func (Newest) Commit(*recorder.Recorder) {}

// Window takes every queued frame and leaves the queue empty; the recorder
// keeps accumulating from zero.
type Window struct{}

// Kind implements Source.
func (Window) Kind() string { return KindAnimation }

// Peek implements Source.
func (Window) Peek(rec *recorder.Recorder) ([]frame.Frame, bool) {
	frames := rec.Queue.Frames()
	return frames, len(frames) > 0
}

// Commit implements Source. It empties the queue.
func (Window) Commit(rec *recorder.Recorder) {
	rec.Queue.Drain()
}

var (
	_ Source = Newest{}
	_ Source = Window{}
)
