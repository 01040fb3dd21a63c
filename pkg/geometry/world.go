// Package geometry provides a resolv-backed scene that particle systems can
// collide against through modules.GeometryQuery.
package geometry

import (
	"log"
	"math"

	"github.com/decker502/particlefx/pkg/modules"
	"github.com/solarlune/resolv"
)

const (
	tagCollider = "collider"
	tagProbe    = "probe"
)

// AllLayers matches every collider.
const AllLayers uint32 = 0xFFFFFFFF

// collider is stored in resolv.Object.Data.
type collider struct {
	handle   modules.ColliderHandle
	entityID uint64
	layers   uint32
}

var _ modules.GeometryQuery = (*World)(nil)

// World is a set of axis-aligned boxes indexed by a resolv.Space.
//
// The space only indexes objects inside its bounds, so size it to cover the
// scene. A World is not safe for concurrent use.
type World struct {
	space   *resolv.Space
	probe   *resolv.Object
	objects map[modules.ColliderHandle]*resolv.Object
	next    modules.ColliderHandle
}

// NewWorld creates a world of width x height pixels hashed into square cells.
func NewWorld(width, height, cellSize int) *World {
	if cellSize <= 0 {
		cellSize = 16
	}
	space := resolv.NewSpace(width, height, cellSize, cellSize)
	probe := resolv.NewObject(0, 0, 1, 1, tagProbe)
	space.Add(probe)

	log.Printf("[Geometry] world %dx%d, cell %d", width, height, cellSize)
	return &World{
		space:   space,
		probe:   probe,
		objects: make(map[modules.ColliderHandle]*resolv.Object),
	}
}

// AddBox registers a box owned by entityID on the given layer bits.
func (w *World) AddBox(entityID uint64, x, y, width, height float64, layers uint32) modules.ColliderHandle {
	w.next++
	obj := resolv.NewObject(x, y, width, height, tagCollider)
	obj.SetShape(resolv.NewRectangle(0, 0, width, height))
	obj.Data = &collider{handle: w.next, entityID: entityID, layers: layers}
	w.space.Add(obj)
	w.objects[w.next] = obj
	return w.next
}

// Move repositions a box.
func (w *World) Move(h modules.ColliderHandle, x, y float64) bool {
	obj, ok := w.objects[h]
	if !ok {
		return false
	}
	obj.X, obj.Y = x, y
	obj.Update()
	return true
}

// Remove deletes a box. Unknown handles are ignored.
func (w *World) Remove(h modules.ColliderHandle) bool {
	obj, ok := w.objects[h]
	if !ok {
		return false
	}
	w.space.Remove(obj)
	delete(w.objects, h)
	return true
}

// Len returns the number of boxes.
func (w *World) Len() int {
	return len(w.objects)
}

// candidates returns the colliders sharing a cell with the given area and
// matching mask. A zero mask matches every layer.
func (w *World) candidates(x, y, width, height float64, mask uint32) []*resolv.Object {
	w.probe.X, w.probe.Y = x, y
	w.probe.W, w.probe.H = math.Max(width, 1), math.Max(height, 1)
	w.probe.Update()

	check := w.probe.Check(0, 0, tagCollider)
	if check == nil {
		return nil
	}
	var out []*resolv.Object
	for _, obj := range check.ObjectsByTags(tagCollider) {
		c, ok := obj.Data.(*collider)
		if !ok {
			continue
		}
		if mask != 0 && c.layers&mask == 0 {
			continue
		}
		out = append(out, obj)
	}
	return out
}

// OverlapCircle implements modules.GeometryQuery.
func (w *World) OverlapCircle(x, y, radius float64, mask uint32) modules.OverlapResult {
	var res modules.OverlapResult
	for _, obj := range w.candidates(x-radius, y-radius, 2*radius, 2*radius, mask) {
		// Closest point on the box to the circle center.
		cx := clamp(x, obj.X, obj.X+obj.W)
		cy := clamp(y, obj.Y, obj.Y+obj.H)
		if dx, dy := x-cx, y-cy; dx*dx+dy*dy > radius*radius {
			continue
		}
		c := obj.Data.(*collider)
		res.EntityIDs = append(res.EntityIDs, c.entityID)
		res.Colliders = append(res.Colliders, c.handle)
	}
	return res
}

// Raycast implements modules.GeometryQuery. It returns the nearest box hit
// within maxDist. A ray starting inside a box hits at its origin with the
// normal facing back along the ray's dominant axis.
func (w *World) Raycast(ox, oy, dx, dy, maxDist float64, mask uint32) (modules.RaycastHit, bool) {
	length := math.Hypot(dx, dy)
	if length == 0 || maxDist <= 0 {
		return modules.RaycastHit{}, false
	}
	dx, dy = dx/length, dy/length
	ex, ey := ox+dx*maxDist, oy+dy*maxDist

	minX, minY := math.Min(ox, ex), math.Min(oy, ey)
	var (
		best  modules.RaycastHit
		bestT = math.Inf(1)
		found bool
	)
	for _, obj := range w.candidates(minX, minY, math.Abs(ex-ox), math.Abs(ey-oy), mask) {
		t, nx, ny, ok := slab(ox, oy, dx, dy, obj.X, obj.Y, obj.X+obj.W, obj.Y+obj.H)
		if !ok || t > maxDist || t >= bestT {
			continue
		}
		c := obj.Data.(*collider)
		bestT = t
		best = modules.RaycastHit{
			X:        ox + dx*t,
			Y:        oy + dy*t,
			NormalX:  nx,
			NormalY:  ny,
			EntityID: c.entityID,
			Collider: c.handle,
		}
		found = true
	}
	return best, found
}

// slab intersects a unit ray with an axis-aligned box and returns the entry
// distance and surface normal.
func slab(ox, oy, dx, dy, x0, y0, x1, y1 float64) (t, nx, ny float64, ok bool) {
	if ox >= x0 && ox <= x1 && oy >= y0 && oy <= y1 {
		if math.Abs(dx) >= math.Abs(dy) {
			return 0, -math.Copysign(1, dx), 0, true
		}
		return 0, 0, -math.Copysign(1, dy), true
	}

	tMin, tMax := math.Inf(-1), math.Inf(1)
	var axis int
	for i, s := range [2]struct{ o, d, lo, hi float64 }{{ox, dx, x0, x1}, {oy, dy, y0, y1}} {
		if s.d == 0 {
			if s.o < s.lo || s.o > s.hi {
				return 0, 0, 0, false
			}
			continue
		}
		t0, t1 := (s.lo-s.o)/s.d, (s.hi-s.o)/s.d
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin, axis = t0, i
		}
		tMax = math.Min(tMax, t1)
	}
	if tMin > tMax || tMax < 0 || tMin < 0 {
		return 0, 0, 0, false
	}
	if axis == 0 {
		return tMin, -math.Copysign(1, dx), 0, true
	}
	return tMin, 0, -math.Copysign(1, dy), true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
