package camera

import (
	"sort"
	"sync"

	"github.com/gogpu/capture/render"
)

// MemScene is an in-memory Scene. Hosts without a scene graph of their own
// use it to register the cameras they render, and it records the recorder
// cameras spawned by the pipeline so the host can render into their targets.
// It is safe for concurrent use.
type MemScene struct {
	mu      sync.RWMutex
	next    Ref
	cameras map[Ref]*entry
}

type entry struct {
	geom   Geometry
	target render.Target
}

// Camera is a snapshot of one camera in a MemScene.
type Camera struct {
	Ref      Ref
	Geometry Geometry

	// Target is nil for cameras added with Add.
	Target render.Target
}

// NewMemScene creates an empty scene.
func NewMemScene() *MemScene {
	return &MemScene{cameras: make(map[Ref]*entry)}
}

// Add inserts a host camera and returns its reference.
func (s *MemScene) Add(geom Geometry) Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(geom, nil)
}

// Remove deletes a camera. It is the same as Despawn.
func (s *MemScene) Remove(ref Ref) {
	s.Despawn(ref)
}

// Geometry implements Scene.
func (s *MemScene) Geometry(ref Ref) (Geometry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.cameras[ref]
	if !ok {
		return Geometry{}, false
	}
	return e.geom, true
}

// Spawn implements Scene.
func (s *MemScene) Spawn(geom Geometry, target render.Target) (Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(geom, target), nil
}

// SetGeometry implements Scene.
func (s *MemScene) SetGeometry(ref Ref, geom Geometry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.cameras[ref]; ok {
		e.geom = geom
	}
}

// Despawn implements Scene.
func (s *MemScene) Despawn(ref Ref) {
	s.mu.Lock()
	delete(s.cameras, ref)
	s.mu.Unlock()
}

// Len returns the number of cameras, recorder cameras included.
func (s *MemScene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cameras)
}

// Recorders returns the cameras spawned with a target, ordered by Ref.
func (s *MemScene) Recorders() []Camera {
	s.mu.RLock()
	out := make([]Camera, 0, len(s.cameras))
	for ref, e := range s.cameras {
		if e.target != nil {
			out = append(out, Camera{Ref: ref, Geometry: e.geom, Target: e.target})
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out
}

func (s *MemScene) insertLocked(geom Geometry, target render.Target) Ref {
	s.next++
	s.cameras[s.next] = &entry{geom: geom, target: target}
	return s.next
}

// Ensure MemScene implements Scene.
var _ Scene = (*MemScene)(nil)
