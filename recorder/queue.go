// Package recorder owns the per-recorder ring buffers and the registry that
// creates and tears recorders down as tracked cameras come and go.
package recorder

import (
	"time"

	"github.com/gogpu/capture/frame"
)

// Queue is a time-windowed ring buffer of frames, oldest first.
//
// The sum of frame durations is cached. After Push the total never exceeds
// the budget by more than the newest frame's duration.
//
// Queue is not safe for concurrent use.
type Queue struct {
	frames []frame.Frame
	total  time.Duration
}

// Push appends f, first evicting the oldest frames while the total plus f
// would exceed budget. If the queue empties before the total fits, Push
// stops evicting, accepts f anyway and reports overrun.
func (q *Queue) Push(f frame.Frame, budget time.Duration) (evicted int, overrun bool) {
	current := q.total
	for current+f.Duration > budget {
		if evicted == len(q.frames) {
			overrun = true
			break
		}
		current -= q.frames[evicted].Duration
		q.frames[evicted] = frame.Frame{}
		evicted++
	}
	if evicted > 0 {
		q.frames = q.frames[evicted:]
	}
	q.frames = append(q.frames, f)
	q.total = current + f.Duration
	return evicted, overrun
}

// Newest returns the most recently pushed frame without removing it.
func (q *Queue) Newest() (frame.Frame, bool) {
	if len(q.frames) == 0 {
		return frame.Frame{}, false
	}
	return q.frames[len(q.frames)-1], true
}

// Drain removes and returns every frame. The queue keeps accepting frames
// from empty afterwards and never touches the returned slice again.
func (q *Queue) Drain() []frame.Frame {
	out := q.frames
	q.frames = nil
	q.total = 0
	return out
}

// Len returns the number of queued frames.
func (q *Queue) Len() int { return len(q.frames) }

// Total returns the summed duration of the queued frames.
func (q *Queue) Total() time.Duration { return q.total }

// Frames returns a copy of the queued frames, oldest first. Pixel buffers
// are shared with the queue and must not be modified.
func (q *Queue) Frames() []frame.Frame {
	out := make([]frame.Frame, len(q.frames))
	copy(out, q.frames)
	return out
}
