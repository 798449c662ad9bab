// Package camera describes the scene surface the capture pipeline needs:
// camera geometry, target sizing and a Scene that can spawn and update the
// synthetic recorder cameras mirroring tracked cameras.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/capture/render"
)

// Ref identifies a camera in a Scene. The zero Ref never resolves.
type Ref uint64

// Transform is a camera's placement in world space.
type Transform struct {
	Translation [3]float32
	Rotation    [4]float32 // quaternion x, y, z, w
	Scale       [3]float32
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}
}

// Orthographic is an orthographic projection in world units.
type Orthographic struct {
	Left, Right float32
	Bottom, Top float32
	Near, Far   float32
	Scale       float32
}

// Extent returns the projection's width and height, clamped to zero.
func (o Orthographic) Extent() (w, h float32) {
	return math32.Max(0, o.Right-o.Left), math32.Max(0, o.Top-o.Bottom)
}

// Geometry is everything a recorder camera copies from its tracked camera.
type Geometry struct {
	Transform  Transform
	Projection Orthographic
}

// TargetSize returns the pixel size of an offscreen target covering o.
// Extents are rounded to the nearest integer and are never negative.
func TargetSize(o Orthographic) (width, height int) {
	w, h := o.Extent()
	return int(math32.Round(w)), int(math32.Round(h))
}

// Scene is the host's scene graph as seen by the recorder registry.
type Scene interface {
	// Geometry returns the current geometry of ref.
	Geometry(ref Ref) (Geometry, bool)

	// Spawn creates a recorder camera with geom that renders into target.
	Spawn(geom Geometry, target render.Target) (Ref, error)

	// SetGeometry overwrites the geometry of ref. Unknown refs are ignored.
	SetGeometry(ref Ref, geom Geometry)

	// Despawn removes ref. Unknown refs are ignored.
	Despawn(ref Ref)
}
