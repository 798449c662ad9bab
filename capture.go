package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/capture/camera"
	"github.com/gogpu/capture/dispatch"
	"github.com/gogpu/capture/encode"
	"github.com/gogpu/capture/encode/gif"
	"github.com/gogpu/capture/encode/png"
	"github.com/gogpu/capture/frame"
	"github.com/gogpu/capture/handoff"
	"github.com/gogpu/capture/recorder"
	"github.com/gogpu/capture/render"
	"github.com/gogpu/capture/sink"
	"github.com/gogpu/capture/task"
)

// Capture errors.
var (
	// ErrNoRenderPhase is returned by New when the host has no way to read
	// render targets back.
	ErrNoRenderPhase = errors.New("capture: host has no render phase (nil Reader)")

	// ErrNoScene is returned by New when the host has no scene.
	ErrNoScene = errors.New("capture: host has no scene")

	// ErrNoAllocator is returned by New when the host cannot allocate
	// render targets.
	ErrNoAllocator = errors.New("capture: host has no target allocator")

	// ErrClosed resolves requests made after Close.
	ErrClosed = errors.New("capture: closed")

	// ErrNotTracking resolves requests for an ID without an active recorder.
	ErrNotTracking = dispatch.ErrRacyMiss

	// ErrUnknownFormat resolves captures naming a format that is not
	// available.
	ErrUnknownFormat = errors.New("capture: unknown format")
)

// Host is what the application provides: its scene and the render
// collaborators that allocate and read back recorder targets.
type Host struct {
	Scene     camera.Scene
	Allocator render.Allocator
	Reader    render.Reader
}

// PixmapHost returns a host rendering recorders into CPU pixmaps whose rows
// are padded to cfg.RowAlignment.
func PixmapHost(scene camera.Scene, cfg Config) Host {
	return Host{
		Scene:     scene,
		Allocator: render.PixmapAllocator{Align: cfg.RowAlignment},
		Reader:    render.PixmapReader{},
	}
}

// HALHost returns a host rendering recorders into textures of the device
// shared by provider.
func HALHost(provider render.DeviceHandle, scene camera.Scene, cfg Config) (Host, error) {
	b, err := render.NewHALBackend(provider,
		render.WithRowAlignment(cfg.RowAlignment),
		render.WithReadbackTimeout(cfg.ReadbackTimeout.Std()),
		render.WithHALLogger(Logger()),
	)
	if err != nil {
		return Host{}, fmt.Errorf("capture: %w", err)
	}
	return Host{Scene: scene, Allocator: b, Reader: b}, nil
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	// Recorders is the number of active recorders.
	Recorders int

	// Frames is the number of frames held across all recorders.
	Frames int

	// StillJobs and AnimationJobs count outstanding jobs.
	StillJobs     int
	AnimationJobs int

	// Overwritten counts readbacks replaced before Update consumed them.
	Overwritten uint64

	// Pending counts queued requests not yet applied.
	Pending int
}

// Capture is a frame capture pipeline.
//
// The request methods, RenderPhase and Stats are safe for concurrent use.
// Update must be called from one goroutine at a time, the host's
// simulation phase; RenderPhase may run concurrently with it.
type Capture struct {
	cfg    Config
	log    *slog.Logger
	scene  camera.Scene
	alloc  render.Allocator
	reader render.Reader
	store  *handoff.Store

	// sim guards the recorder registry and dispatchers.
	sim       sync.Mutex
	reg       *recorder.Registry
	encoders  map[string]encode.Encoder
	stills    map[string]*dispatch.Dispatcher
	anims     map[string]*dispatch.Dispatcher
	stillJobs *task.Reaper[*task.Job]
	animJobs  *task.Reaper[*task.Job]
	sink      sink.Sink
	pool      *task.Pool
	ownPool   bool
	now       func() time.Time

	// mu guards the request queues.
	mu       sync.Mutex
	closed   bool
	starts   []pending[StartTracking]
	stops    []pending[StopTracking]
	stillReq []pending[CaptureStill]
	animReq  []pending[CaptureAnimation]
}

// New creates a pipeline for host. It fails when the host cannot render or
// read back recorder targets, or has no scene.
func New(cfg Config, host Host, opts ...Option) (*Capture, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if host.Reader == nil {
		return nil, ErrNoRenderPhase
	}
	if host.Scene == nil {
		return nil, ErrNoScene
	}
	if host.Allocator == nil {
		a, ok := host.Reader.(render.Allocator)
		if !ok {
			return nil, ErrNoAllocator
		}
		host.Allocator = a
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}

	c := &Capture{
		cfg:       cfg,
		log:       o.logger,
		scene:     host.Scene,
		alloc:     host.Allocator,
		reader:    host.Reader,
		store:     handoff.NewStore(),
		encoders:  make(map[string]encode.Encoder),
		stills:    make(map[string]*dispatch.Dispatcher),
		anims:     make(map[string]*dispatch.Dispatcher),
		stillJobs: &task.Reaper[*task.Job]{},
		animJobs:  &task.Reaper[*task.Job]{},
		sink:      o.sink,
		pool:      o.pool,
		now:       o.now,
	}
	c.reg = recorder.NewRegistry(recorder.WithLogger(c.log), recorder.WithFormat(o.format))
	if c.sink == nil {
		c.sink = sink.FileSink{Dir: cfg.OutputDir}
	}
	if c.pool == nil {
		c.pool = task.NewPool(cfg.Workers)
		c.ownPool = true
	}

	compression, _ := png.ParseCompression(cfg.PNGCompression)
	c.encoders[png.Name] = png.New(png.Options{Compression: compression})
	c.encoders[gif.Name] = gif.New(gif.Options{
		Params: gif.Params{Colors: cfg.AnimationColors, Scale: cfg.AnimationScale},
		Pool:   c.pool,
	})
	for _, enc := range o.encoders {
		c.encoders[enc.Name()] = enc
	}

	c.log.Info("capture: ready", "workers", c.pool.Workers(), "still", cfg.StillFormat, "animation", cfg.AnimationFormat)
	return c, nil
}

// StartTracking queues a request to start a recorder.
func (c *Capture) StartTracking(req StartTracking) Ticket {
	p := newPending(req)
	if c.enqueue(func() { c.starts = append(c.starts, p) }) {
		p.resolve(Outcome{ID: req.ID, Kind: KindStart, Err: ErrClosed})
	}
	return p.out
}

// StopTracking queues a request to stop the recorder id.
func (c *Capture) StopTracking(id ID) Ticket {
	p := newPending(StopTracking{ID: id})
	if c.enqueue(func() { c.stops = append(c.stops, p) }) {
		p.resolve(Outcome{ID: id, Kind: KindStop, Err: ErrClosed})
	}
	return p.out
}

// CaptureStill queues a still capture.
func (c *Capture) CaptureStill(req CaptureStill) Ticket {
	p := newPending(req)
	if c.enqueue(func() { c.stillReq = append(c.stillReq, p) }) {
		p.resolve(Outcome{ID: req.ID, Kind: KindStill, Err: ErrClosed})
	}
	return p.out
}

// CaptureAnimation queues an animation capture.
func (c *Capture) CaptureAnimation(req CaptureAnimation) Ticket {
	p := newPending(req)
	if c.enqueue(func() { c.animReq = append(c.animReq, p) }) {
		p.resolve(Outcome{ID: req.ID, Kind: KindAnimation, Err: ErrClosed})
	}
	return p.out
}

// CapturePNG queues a PNG still of recorder id. An empty path selects a
// name derived from the current time.
func (c *Capture) CapturePNG(id ID, path string) Ticket {
	return c.CaptureStill(CaptureStill{ID: id, Path: path, Params: StillParams{Format: png.Name}})
}

// CaptureGIF queues a GIF of the window of recorder id. An empty path
// selects a name derived from the current time.
func (c *Capture) CaptureGIF(id ID, path string) Ticket {
	return c.CaptureAnimation(CaptureAnimation{ID: id, Path: path, Params: AnimationParams{Format: gif.Name}})
}

// enqueue runs add under the queue lock. It reports true when the Capture
// is closed and add did not run.
func (c *Capture) enqueue(add func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	add()
	return false
}

// RenderPhase reads back every registered recorder target and hands the
// pixels to the next Update. Reads happen outside the handoff lock, one
// recorder at a time; a failed read is logged and skips only that
// recorder. It returns the number of targets read.
func (c *Capture) RenderPhase(ctx context.Context) int {
	read := 0
	for _, e := range c.store.Targets() {
		if err := ctx.Err(); err != nil {
			return read
		}
		ext, err := c.reader.ReadPixels(ctx, e.Target)
		switch {
		case errors.Is(err, render.ErrDestroyed):
			c.log.Debug("capture: target torn down during readback", "id", e.ID)
			continue
		case err != nil:
			c.log.Error("capture: readback failed", "id", e.ID, "err", err)
			continue
		}
		if c.store.Put(e.ID, ext) {
			read++
		}
	}
	return read
}

// Update runs one simulation tick with host delta dt: geometry sync and
// teardown, frame ingestion, start requests, stop requests, still
// captures, animation captures and job reaping, in that order.
func (c *Capture) Update(dt time.Duration) {
	c.mu.Lock()
	starts, stops, stills, anims := c.starts, c.stops, c.stillReq, c.animReq
	c.starts, c.stops, c.stillReq, c.animReq = nil, nil, nil, nil
	c.mu.Unlock()

	c.sim.Lock()
	defer c.sim.Unlock()

	for _, id := range c.reg.Sync(c.scene, c.store) {
		c.log.Debug("capture: recorder torn down", "id", id)
	}
	c.reg.Ingest(c.store, dt)

	for _, p := range starts {
		c.applyStart(p)
	}
	for _, p := range stops {
		var err error
		if !c.reg.Stop(p.req.ID, c.scene, c.store) {
			err = ErrNotTracking
		}
		p.resolve(Outcome{ID: p.req.ID, Kind: KindStop, Err: err})
	}
	for _, p := range stills {
		c.applyStill(p)
	}
	for _, p := range anims {
		c.applyAnimation(p)
	}

	if n := c.stillJobs.Reap() + c.animJobs.Reap(); n > 0 {
		c.log.Debug("capture: reaped jobs", "count", n)
	}
}

func (c *Capture) applyStart(p pending[StartTracking]) {
	window := p.req.Window
	if window == 0 {
		window = c.cfg.DefaultWindow.Std()
	}
	err := c.reg.Start(recorder.Request{Camera: p.req.Camera, ID: p.req.ID, Window: window}, c.scene, c.alloc, c.store)
	if err != nil {
		if errors.Is(err, recorder.ErrDuplicate) {
			c.log.Warn("capture: duplicate recorder id", "id", p.req.ID)
		} else {
			c.log.Error("capture: start tracking failed", "id", p.req.ID, "err", err)
		}
	}
	p.resolve(Outcome{ID: p.req.ID, Kind: KindStart, Err: err})
}

func (c *Capture) applyStill(p pending[CaptureStill]) {
	format := p.req.Params.Format
	if format == "" {
		format = c.cfg.StillFormat
	}
	if p.req.Params.Watermark != nil {
		c.log.Error("capture: watermarked stills are not supported", "id", p.req.ID)
		c.finish(p.out, Outcome{ID: p.req.ID, Kind: KindStill, Err: encode.ErrWatermarkUnsupported}, p.req.ID, p.req.Then)
		return
	}
	d, err := c.dispatcher(c.stills, format, dispatch.Newest{}, c.stillJobs)
	if err != nil {
		c.finish(p.out, Outcome{ID: p.req.ID, Kind: KindStill, Err: err}, p.req.ID, p.req.Then)
		return
	}
	c.dispatch(d, p.out, dispatch.Request{ID: p.req.ID, Path: p.req.Path}, KindStill, p.req.Then)
}

func (c *Capture) applyAnimation(p pending[CaptureAnimation]) {
	format := p.req.Params.Format
	if format == "" {
		format = c.cfg.AnimationFormat
	}
	d, err := c.dispatcher(c.anims, format, dispatch.Window{}, c.animJobs)
	if err != nil {
		c.finish(p.out, Outcome{ID: p.req.ID, Kind: KindAnimation, Err: err}, p.req.ID, p.req.Then)
		return
	}
	params := gif.Params{
		Colors:       p.req.Params.Colors,
		Scale:        p.req.Params.Scale,
		SampleFactor: p.req.Params.SampleFactor,
	}
	c.dispatch(d, p.out, dispatch.Request{ID: p.req.ID, Path: p.req.Path, Options: params}, KindAnimation, p.req.Then)
}

// dispatch hands req to d. The ticket resolves when the job finishes, or
// now if no job was spawned.
func (c *Capture) dispatch(d *dispatch.Dispatcher, out chan Outcome, req dispatch.Request, kind string, then PostCapture) {
	req.OnDone = func(o dispatch.Outcome) {
		out <- Outcome{ID: o.ID, Kind: kind, Path: o.Path, Err: o.Err}
		close(out)
	}
	if _, err := d.Dispatch(req, c.reg); err != nil {
		c.finish(out, Outcome{ID: req.ID, Kind: kind, Err: err}, req.ID, then)
		return
	}
	c.after(req.ID, then)
}

// finish resolves a capture ticket that spawned no job and applies then.
func (c *Capture) finish(out chan Outcome, o Outcome, id ID, then PostCapture) {
	out <- o
	close(out)
	c.after(id, then)
}

// after applies a post-capture disposition.
func (c *Capture) after(id ID, then PostCapture) {
	if then != Stop {
		return
	}
	if c.reg.Stop(id, c.scene, c.store) {
		c.log.Debug("capture: stopped after capture", "id", id)
	}
}

// dispatcher returns the dispatcher of format for one output kind,
// creating it on first use.
func (c *Capture) dispatcher(cache map[string]*dispatch.Dispatcher, format string, src dispatch.Source, reaper *task.Reaper[*task.Job]) (*dispatch.Dispatcher, error) {
	if d, ok := cache[format]; ok {
		return d, nil
	}
	enc, ok := c.encoders[format]
	if !ok {
		var err error
		if enc, err = encode.New(format); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
		}
	}
	d := dispatch.New(dispatch.Config{
		Source:  src,
		Encoder: enc,
		Sink:    c.sink,
		Pool:    c.pool,
		Reaper:  reaper,
		Now:     c.now,
		Logger:  c.log,
	})
	cache[format] = d
	return d, nil
}

// Frames returns a snapshot of the frames currently held for id.
func (c *Capture) Frames(id ID) ([]frame.Frame, bool) {
	c.sim.Lock()
	defer c.sim.Unlock()
	rec, ok := c.reg.Get(id)
	if !ok {
		return nil, false
	}
	return rec.Queue.Frames(), true
}

// Stats returns current pipeline counters.
func (c *Capture) Stats() Stats {
	c.mu.Lock()
	queued := len(c.starts) + len(c.stops) + len(c.stillReq) + len(c.animReq)
	c.mu.Unlock()

	c.sim.Lock()
	defer c.sim.Unlock()
	st := Stats{
		Recorders:     c.reg.Len(),
		StillJobs:     c.stillJobs.Pending(),
		AnimationJobs: c.animJobs.Pending(),
		Overwritten:   c.store.Stats().Overwritten,
		Pending:       queued,
	}
	for _, id := range c.reg.IDs() {
		rec, _ := c.reg.Get(id)
		st.Frames += rec.Queue.Len()
	}
	return st
}

// Close rejects new requests, resolves queued ones with ErrClosed, tears
// down every recorder and waits for outstanding jobs until ctx is done.
// A pool created by New is closed once the jobs finish.
func (c *Capture) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	starts, stops, stills, anims := c.starts, c.stops, c.stillReq, c.animReq
	c.starts, c.stops, c.stillReq, c.animReq = nil, nil, nil, nil
	c.mu.Unlock()

	for _, p := range starts {
		p.resolve(Outcome{ID: p.req.ID, Kind: KindStart, Err: ErrClosed})
	}
	for _, p := range stops {
		p.resolve(Outcome{ID: p.req.ID, Kind: KindStop, Err: ErrClosed})
	}
	for _, p := range stills {
		p.resolve(Outcome{ID: p.req.ID, Kind: KindStill, Err: ErrClosed})
	}
	for _, p := range anims {
		p.resolve(Outcome{ID: p.req.ID, Kind: KindAnimation, Err: ErrClosed})
	}

	c.sim.Lock()
	c.reg.Close(c.scene, c.store)
	jobs := append(c.stillJobs.Outstanding(), c.animJobs.Outstanding()...)
	c.sim.Unlock()

	for _, job := range jobs {
		if err := job.Wait(ctx); err != nil && ctx.Err() != nil {
			return fmt.Errorf("capture: close: %w", ctx.Err())
		}
	}
	c.stillJobs.Reap()
	c.animJobs.Reap()
	if c.ownPool {
		c.pool.Close()
	}
	c.log.Info("capture: closed")
	return nil
}
