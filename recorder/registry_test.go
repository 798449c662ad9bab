package recorder

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/capture/camera"
	"github.com/gogpu/capture/frame"
	"github.com/gogpu/capture/handoff"
	"github.com/gogpu/capture/render"
)

type fixture struct {
	scene *camera.MemScene
	store *handoff.Store
	alloc render.PixmapAllocator
	reg   *Registry
	cam   camera.Ref
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		scene: camera.NewMemScene(),
		store: handoff.NewStore(),
		reg:   NewRegistry(WithFormat(gputypes.TextureFormatRGBA8Unorm)),
	}
	f.cam = f.scene.Add(camera.Geometry{
		Transform:  camera.Identity(),
		Projection: camera.Orthographic{Left: -1, Right: 1, Bottom: -1, Top: 1},
	})
	return f
}

func (f *fixture) start(t *testing.T, id frame.ID, window time.Duration) {
	t.Helper()
	if err := f.reg.Start(Request{Camera: f.cam, ID: id, Window: window}, f.scene, f.alloc, f.store); err != nil {
		t.Fatalf("Start(%d): %v", id, err)
	}
}

func (f *fixture) put(id frame.ID) {
	f.store.Put(id, frame.Extract{Pixels: make([]byte, 16), Width: 2, Height: 2, Format: gputypes.TextureFormatRGBA8Unorm})
}

func TestRegistryStart(t *testing.T) {
	f := newFixture(t)
	f.start(t, 1, time.Second)

	rec, ok := f.reg.Get(1)
	if !ok {
		t.Fatal("recorder 1 not registered")
	}
	if rec.Target.Width() != 2 || rec.Target.Height() != 2 {
		t.Errorf("target = %dx%d, want 2x2", rec.Target.Width(), rec.Target.Height())
	}
	if rec.Target.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("target format = %v", rec.Target.Format())
	}
	if !f.store.Has(1) {
		t.Error("handoff slot not registered")
	}
	if len(f.scene.Recorders()) != 1 {
		t.Error("recorder camera not spawned")
	}
	if rec.Tracked != f.cam || rec.Camera == f.cam {
		t.Errorf("Tracked=%d Camera=%d, want tracked %d and a new camera", rec.Tracked, rec.Camera, f.cam)
	}
}

func TestRegistryStartErrors(t *testing.T) {
	f := newFixture(t)
	f.start(t, 1, time.Second)

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"duplicate", Request{Camera: f.cam, ID: 1, Window: time.Second}, ErrDuplicate},
		{"missing camera", Request{Camera: 99, ID: 2, Window: time.Second}, ErrCameraNotFound},
		{"zero window", Request{Camera: f.cam, ID: 3}, ErrInvalidWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.reg.Start(tt.req, f.scene, f.alloc, f.store)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if f.reg.Len() != 1 || f.store.Len() != 1 {
		t.Errorf("failed starts changed state: %d recorders, %d slots", f.reg.Len(), f.store.Len())
	}
}

func TestRegistryIngestWindow(t *testing.T) {
	const (
		window = 500 * time.Millisecond
		n      = 5
	)
	f := newFixture(t)
	f.start(t, 1, window)

	for range n {
		f.put(1)
		if got := f.reg.Ingest(f.store, window/n); got != 1 {
			t.Fatalf("Ingest() = %d, want 1", got)
		}
	}
	rec, _ := f.reg.Get(1)
	if rec.Queue.Len() != n {
		t.Fatalf("queue has %d frames, want %d", rec.Queue.Len(), n)
	}

	f.put(1)
	f.reg.Ingest(f.store, window/n)
	if rec.Queue.Len() != n {
		t.Errorf("one more frame should evict exactly one: Len() = %d", rec.Queue.Len())
	}
}

func TestRegistryIngestElapsed(t *testing.T) {
	f := newFixture(t)
	f.start(t, 1, time.Second)

	f.reg.Ingest(f.store, 10*time.Millisecond) // no frame this tick
	f.put(1)
	f.reg.Ingest(f.store, 20*time.Millisecond)

	rec, _ := f.reg.Get(1)
	newest, ok := rec.Queue.Newest()
	if !ok {
		t.Fatal("expected a frame")
	}
	if newest.Duration != 30*time.Millisecond {
		t.Errorf("Duration = %v, want 30ms since the previous frame", newest.Duration)
	}
}

func TestRegistryIngestUnknown(t *testing.T) {
	f := newFixture(t)
	f.store.Register(7, nil)
	f.put(7)
	if got := f.reg.Ingest(f.store, time.Millisecond); got != 0 {
		t.Errorf("Ingest() = %d, want 0 for an unknown recorder", got)
	}
}

func TestRegistrySyncCopiesGeometry(t *testing.T) {
	f := newFixture(t)
	f.start(t, 1, time.Second)

	moved := camera.Geometry{
		Transform:  camera.Identity(),
		Projection: camera.Orthographic{Left: -2, Right: 2, Bottom: -1, Top: 1},
	}
	moved.Transform.Translation = [3]float32{5, 6, 7}
	f.scene.SetGeometry(f.cam, moved)

	if gone := f.reg.Sync(f.scene, f.store); len(gone) != 0 {
		t.Fatalf("Sync tore down %v", gone)
	}
	rec, _ := f.reg.Get(1)
	got, _ := f.scene.Geometry(rec.Camera)
	if got != moved {
		t.Errorf("recorder camera geometry = %+v, want %+v", got, moved)
	}
}

func TestRegistrySyncTearsDown(t *testing.T) {
	f := newFixture(t)
	f.start(t, 1, time.Second)
	f.start(t, 2, time.Second)
	rec, _ := f.reg.Get(1)
	f.put(1)

	f.scene.Remove(f.cam)
	gone := f.reg.Sync(f.scene, f.store)
	if len(gone) != 2 || gone[0] != 1 || gone[1] != 2 {
		t.Fatalf("Sync() = %v, want [1 2]", gone)
	}
	if f.reg.Len() != 0 || f.store.Len() != 0 {
		t.Errorf("teardown left %d recorders and %d slots", f.reg.Len(), f.store.Len())
	}
	if f.scene.Len() != 0 {
		t.Errorf("recorder cameras left in scene: %d", f.scene.Len())
	}
	if _, err := (render.PixmapReader{}).ReadPixels(t.Context(), rec.Target); !errors.Is(err, render.ErrDestroyed) {
		t.Errorf("target not destroyed: %v", err)
	}
}

func TestRegistryStop(t *testing.T) {
	f := newFixture(t)
	f.start(t, 5, time.Second)
	f.put(5)
	f.reg.Ingest(f.store, time.Millisecond)

	rec, _ := f.reg.Get(5)
	owned := rec.Queue.Drain()

	if !f.reg.Stop(5, f.scene, f.store) {
		t.Fatal("Stop should report an active recorder")
	}
	if _, ok := f.reg.Get(5); ok {
		t.Error("recorder still registered")
	}
	if f.store.Has(5) {
		t.Error("handoff slot still registered")
	}
	if f.reg.Stop(5, f.scene, f.store) {
		t.Error("second Stop should report false")
	}
	if len(owned) != 1 || len(owned[0].Pixels) != 16 {
		t.Error("frames taken before Stop must stay intact")
	}

	// The ID can be reused once stopped.
	f.start(t, 5, time.Second)
}

func TestRegistryClose(t *testing.T) {
	f := newFixture(t)
	f.start(t, 1, time.Second)
	f.start(t, 2, time.Second)
	f.reg.Close(f.scene, f.store)
	if f.reg.Len() != 0 || f.store.Len() != 0 || f.scene.Len() != 1 {
		t.Errorf("Close left recorders=%d slots=%d cameras=%d", f.reg.Len(), f.store.Len(), f.scene.Len())
	}
}
