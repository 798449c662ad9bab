package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/capture/camera"
	"github.com/gogpu/capture/frame"
	"github.com/gogpu/capture/handoff"
	"github.com/gogpu/capture/render"
)

// Registry errors.
var (
	// ErrDuplicate is returned when a start request reuses a live ID.
	ErrDuplicate = errors.New("recorder: id already tracked")

	// ErrCameraNotFound is returned when the camera to track does not resolve.
	ErrCameraNotFound = errors.New("recorder: tracked camera not found")

	// ErrInvalidWindow is returned for a window duration that is not positive.
	ErrInvalidWindow = errors.New("recorder: window duration must be positive")
)

// DefaultFormat is the pixel format of recorder targets.
const DefaultFormat = gputypes.TextureFormatRGBA8UnormSrgb

// Request asks the registry to start tracking a camera.
type Request struct {
	// Camera is the host camera to mirror.
	Camera camera.Ref

	// ID keys the new recorder.
	ID frame.ID

	// Window is the span of recent frames to retain.
	Window time.Duration
}

// Recorder is the state of one tracking session.
type Recorder struct {
	ID frame.ID

	// Camera is the synthetic camera rendering into Target.
	Camera camera.Ref

	// Tracked is the host camera whose geometry Camera mirrors.
	Tracked camera.Ref

	Target render.Target
	Window time.Duration
	Queue  *Queue

	// elapsed is the time since the last ingested frame.
	elapsed time.Duration
}

// Option configures a Registry.
type Option func(*Registry)

// WithFormat sets the pixel format of new recorder targets.
func WithFormat(format gputypes.TextureFormat) Option {
	return func(r *Registry) {
		if format != gputypes.TextureFormatUndefined {
			r.format = format
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// Registry owns the active recorders.
//
// Registry is driven by the simulation phase and is not safe for concurrent
// use. The handoff store passed to its methods is the only state it shares
// with the render phase.
type Registry struct {
	format    gputypes.TextureFormat
	log       *slog.Logger
	recorders map[frame.ID]*Recorder
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		format:    DefaultFormat,
		log:       slog.New(slog.DiscardHandler),
		recorders: make(map[frame.ID]*Recorder),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start creates a recorder for req: it sizes and allocates a target from
// the tracked camera's projection, spawns a recorder camera mirroring the
// tracked camera and registers an empty queue and handoff slot.
func (r *Registry) Start(req Request, scene camera.Scene, alloc render.Allocator, store *handoff.Store) error {
	if req.Window <= 0 {
		return fmt.Errorf("start %d: %w", req.ID, ErrInvalidWindow)
	}
	if _, ok := r.recorders[req.ID]; ok {
		return fmt.Errorf("start %d: %w", req.ID, ErrDuplicate)
	}
	geom, ok := scene.Geometry(req.Camera)
	if !ok {
		return fmt.Errorf("start %d: camera %d: %w", req.ID, req.Camera, ErrCameraNotFound)
	}

	w, h := camera.TargetSize(geom.Projection)
	target, err := alloc.Allocate(w, h, r.format)
	if err != nil {
		return fmt.Errorf("start %d: %w", req.ID, err)
	}
	ref, err := scene.Spawn(geom, target)
	if err != nil {
		target.Destroy()
		return fmt.Errorf("start %d: spawn recorder camera: %w", req.ID, err)
	}

	r.recorders[req.ID] = &Recorder{
		ID:      req.ID,
		Camera:  ref,
		Tracked: req.Camera,
		Target:  target,
		Window:  req.Window,
		Queue:   &Queue{},
	}
	store.Register(req.ID, target)
	r.log.Info("recorder: started", "id", req.ID, "camera", req.Camera,
		"width", w, "height", h, "window", req.Window)
	return nil
}

// Sync copies each tracked camera's geometry onto its recorder camera.
// Recorders whose tracked camera no longer resolves are torn down in the
// same call; their IDs are returned in ascending order.
func (r *Registry) Sync(scene camera.Scene, store *handoff.Store) []frame.ID {
	var gone []frame.ID
	for _, id := range r.IDs() {
		rec := r.recorders[id]
		geom, ok := scene.Geometry(rec.Tracked)
		if !ok {
			r.teardown(rec, scene, store)
			r.log.Info("recorder: tracked camera gone", "id", id, "camera", rec.Tracked)
			gone = append(gone, id)
			continue
		}
		scene.SetGeometry(rec.Camera, geom)
	}
	return gone
}

// Ingest moves pending extracts from store into the recorder queues.
//
// dt is the host's tick delta. Each frame's duration is the time elapsed
// since the previous frame ingested for the same recorder, so ticks without
// a readback extend the next frame.
func (r *Registry) Ingest(store *handoff.Store, dt time.Duration) int {
	for _, rec := range r.recorders {
		rec.elapsed += dt
	}
	pending := store.TakeAll()
	ingested := 0
	for id, e := range pending {
		rec, ok := r.recorders[id]
		if !ok {
			continue
		}
		evicted, overrun := rec.Queue.Push(frame.New(e, rec.elapsed), rec.Window)
		rec.elapsed = 0
		ingested++
		if overrun {
			r.log.Warn("recorder: frame exceeds window, accepted over budget",
				"id", id, "window", rec.Window, "total", rec.Queue.Total())
		}
		r.log.Debug("recorder: ingested", "id", id, "evicted", evicted, "frames", rec.Queue.Len())
	}
	return ingested
}

// Stop tears down the recorder for id. It reports whether one existed.
// Jobs that already own frames from the recorder are unaffected.
func (r *Registry) Stop(id frame.ID, scene camera.Scene, store *handoff.Store) bool {
	rec, ok := r.recorders[id]
	if !ok {
		return false
	}
	r.teardown(rec, scene, store)
	r.log.Info("recorder: stopped", "id", id)
	return true
}

// Get returns the recorder for id.
func (r *Registry) Get(id frame.ID) (*Recorder, bool) {
	rec, ok := r.recorders[id]
	return rec, ok
}

// Len returns the number of active recorders.
func (r *Registry) Len() int { return len(r.recorders) }

// IDs returns the active recorder IDs in ascending order.
func (r *Registry) IDs() []frame.ID {
	ids := make([]frame.ID, 0, len(r.recorders))
	for id := range r.recorders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Close tears down every recorder.
func (r *Registry) Close(scene camera.Scene, store *handoff.Store) {
	for _, id := range r.IDs() {
		r.teardown(r.recorders[id], scene, store)
	}
}

// teardown removes every piece of state owned by rec.
func (r *Registry) teardown(rec *Recorder, scene camera.Scene, store *handoff.Store) {
	delete(r.recorders, rec.ID)
	store.Remove(rec.ID)
	scene.Despawn(rec.Camera)
	if rec.Target != nil {
		rec.Target.Destroy()
	}
}
