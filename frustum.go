package voxelgi

import (
	"github.com/go-gl/mathgl/mgl32"
)

// plane is ax+by+cz+d=0 with (a,b,c) pointing inside the frustum.
type plane struct {
	normal mgl32.Vec3
	d      float32
}

type Frustum struct {
	planes [6]plane
}

func (p plane) distanceTo(point mgl32.Vec3) float32 {
	return p.normal.Dot(point) + p.d
}

// extractFrustum pulls the six clip planes out of a combined
// view-projection matrix (Gribb-Hartmann). Works for any projection,
// orthographic included.
func extractFrustum(viewProj mgl32.Mat4) Frustum {
	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{viewProj.At(r, 0), viewProj.At(r, 1), viewProj.At(r, 2), viewProj.At(r, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	raw := [6]mgl32.Vec4{
		r3.Add(r0), // left
		r3.Sub(r0), // right
		r3.Add(r1), // bottom
		r3.Sub(r1), // top
		r3.Add(r2), // near
		r3.Sub(r2), // far
	}

	var f Frustum
	for i, p := range raw {
		normal := mgl32.Vec3{p.X(), p.Y(), p.Z()}
		length := normal.Len()
		if length > 0 {
			normal = normal.Mul(1 / length)
			f.planes[i] = plane{normal: normal, d: p.W() / length}
		}
	}
	return f
}

// intersectsAabb tests a world-space box against the frustum using the
// positive-vertex trick. Boxes straddling a plane count as intersecting.
func (f Frustum) intersectsAabb(min, max mgl32.Vec3) bool {
	for _, p := range f.planes {
		farthest := mgl32.Vec3{
			pick(p.normal.X() >= 0, max.X(), min.X()),
			pick(p.normal.Y() >= 0, max.Y(), min.Y()),
			pick(p.normal.Z() >= 0, max.Z(), min.Z()),
		}
		if p.distanceTo(farthest) < 0 {
			return false
		}
	}
	return true
}

// intersectsObb transforms the eight corners of a local box into world
// space and rejects only when all of them sit outside one plane.
func (f Frustum) intersectsObb(min, max mgl32.Vec3, model mgl32.Mat4) bool {
	var corners [8]mgl32.Vec3
	i := 0
	for _, x := range [2]float32{min.X(), max.X()} {
		for _, y := range [2]float32{min.Y(), max.Y()} {
			for _, z := range [2]float32{min.Z(), max.Z()} {
				corners[i] = mgl32.TransformCoordinate(mgl32.Vec3{x, y, z}, model)
				i++
			}
		}
	}

	for _, p := range f.planes {
		allOutside := true
		for _, c := range corners {
			if p.distanceTo(c) >= 0 {
				allOutside = false
				break
			}
		}
		if allOutside {
			return false
		}
	}
	return true
}

func pick(cond bool, a, b float32) float32 {
	if cond {
		return a
	}
	return b
}
