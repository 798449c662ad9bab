// Package dispatch turns capture requests into encode-and-write jobs.
//
// Every output kind shares one skeleton: look up the recorder, take frames
// from it, validate their shape and spawn a job that encodes the frames and
// hands the bytes to a sink. A Source decides which frames a kind takes and
// an encode.Encoder decides the output format.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/capture/encode"
	"github.com/gogpu/capture/frame"
	"github.com/gogpu/capture/recorder"
	"github.com/gogpu/capture/sink"
	"github.com/gogpu/capture/task"
)

// Dispatch errors.
var (
	// ErrRacyMiss is returned when the recorder is gone, usually because it
	// was torn down in the same tick. It is expected and not logged above
	// debug level.
	ErrRacyMiss = errors.New("dispatch: recorder not active")

	// ErrNoFrames is returned when the recorder has no frames to capture.
	ErrNoFrames = errors.New("dispatch: recorder has no frames")

	// ErrSizeMismatch is returned when a frame does not match its
	// recorder's target.
	ErrSizeMismatch = encode.ErrSizeMismatch
)

// Request is one capture request.
type Request struct {
	ID frame.ID

	// Path is the output path. Empty selects "<unix seconds>.<ext>".
	Path string

	// Watermark is forwarded to the encoder.
	Watermark *encode.Watermark

	// Options is forwarded to the encoder.
	Options any

	// OnDone is called on the worker goroutine after the job, following
	// Config.OnDone.
	OnDone func(Outcome)
}

// Outcome reports how a dispatched job finished.
type Outcome struct {
	ID   frame.ID
	Kind string

	// Path is where the sink stored the file.
	Path string

	Err error
}

// Config holds the collaborators of a Dispatcher.
type Config struct {
	Source  Source
	Encoder encode.Encoder
	Sink    sink.Sink
	Pool    *task.Pool

	// Reaper tracks spawned jobs. Nil creates one.
	Reaper *task.Reaper[*task.Job]

	// Now names unnamed outputs. Nil uses time.Now.
	Now func() time.Time

	Logger *slog.Logger

	// OnDone is called on the worker goroutine after each job.
	OnDone func(Outcome)
}

// Dispatcher runs the capture skeleton for one output kind.
type Dispatcher struct {
	source  Source
	encoder encode.Encoder
	sink    sink.Sink
	pool    *task.Pool
	reaper  *task.Reaper[*task.Job]
	now     func() time.Time
	log     *slog.Logger
	onDone  func(Outcome)
}

// New creates a dispatcher.
func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		source:  cfg.Source,
		encoder: cfg.Encoder,
		sink:    cfg.Sink,
		pool:    cfg.Pool,
		reaper:  cfg.Reaper,
		now:     cfg.Now,
		log:     cfg.Logger,
		onDone:  cfg.OnDone,
	}
	if d.reaper == nil {
		d.reaper = &task.Reaper[*task.Job]{}
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.log == nil {
		d.log = slog.New(slog.DiscardHandler)
	}
	return d
}

// Kind returns the kind of output this dispatcher produces.
func (d *Dispatcher) Kind() string { return d.source.Kind() }

// Reaper returns the reaper tracking this dispatcher's jobs.
func (d *Dispatcher) Reaper() *task.Reaper[*task.Job] { return d.reaper }

// Dispatch takes frames for req from reg and spawns the encode job.
// It never blocks on encoding or I/O. On error no job is spawned and the
// recorder's queue is left as it was.
func (d *Dispatcher) Dispatch(req Request, reg *recorder.Registry) (*task.Job, error) {
	kind := d.source.Kind()
	rec, ok := reg.Get(req.ID)
	if !ok {
		d.log.Debug("dispatch: recorder not active", "kind", kind, "id", req.ID)
		return nil, ErrRacyMiss
	}
	frames, ok := d.source.Peek(rec)
	if !ok || len(frames) == 0 {
		d.log.Debug("dispatch: no frames", "kind", kind, "id", req.ID)
		return nil, ErrNoFrames
	}

	width, height := rec.Target.Width(), rec.Target.Height()
	for i := range frames {
		if err := encode.CheckSize(frames[i], width, height); err != nil {
			d.log.Error("dispatch: frame does not match target", "kind", kind, "id", req.ID, "frame", i, "err", err)
			return nil, fmt.Errorf("dispatch %s %d: %w", kind, req.ID, err)
		}
	}

	name := sink.ResolvePath(req.Path, d.encoder.Extension(), d.now())
	in := encode.Input{
		Width:     width,
		Height:    height,
		Frames:    frames,
		Watermark: req.Watermark,
		Options:   req.Options,
	}
	job := task.Spawn(d.pool, kind, func() error {
		out := Outcome{ID: req.ID, Kind: kind}
		out.Path, out.Err = d.run(in, name)
		if out.Err != nil {
			d.log.Error("dispatch: capture failed", "kind", kind, "id", req.ID, "path", name, "err", out.Err)
		} else {
			d.log.Info("dispatch: capture saved", "kind", kind, "id", req.ID, "path", out.Path, "frames", len(in.Frames))
		}
		if d.onDone != nil {
			d.onDone(out)
		}
		if req.OnDone != nil {
			req.OnDone(out)
		}
		return out.Err
	})
	if job.Done() && errors.Is(job.Err(), task.ErrPoolClosed) {
		d.log.Error("dispatch: pool closed", "kind", kind, "id", req.ID)
		return nil, fmt.Errorf("dispatch %s %d: %w", kind, req.ID, task.ErrPoolClosed)
	}
	d.source.Commit(rec)
	d.reaper.Track(job)
	d.log.Debug("dispatch: job spawned", "kind", kind, "id", req.ID, "job", job.ID, "frames", len(frames))
	return job, nil
}

// run encodes in and writes it to the sink.
func (d *Dispatcher) run(in encode.Input, name string) (string, error) {
	var buf bytes.Buffer
	if err := d.encoder.Encode(&buf, in); err != nil {
		return "", err
	}
	return d.sink.Write(context.Background(), name, buf.Bytes())
}

// Reap releases finished jobs and returns how many were released.
func (d *Dispatcher) Reap() int {
	return d.reaper.Reap()
}
