package voxelgi

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type TransformComponent struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func buildModelMatrix(t *TransformComponent) mgl32.Mat4 {
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := t.Rotation.Mat4()
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return translate.Mul4(rotate).Mul4(scale)
}

// Volume marks a world-space box for voxelization. Views holds the three
// capture camera entities, populated once by addVolumeViewsSystem.
type Volume struct {
	Min   mgl32.Vec3
	Max   mgl32.Vec3
	Views []EntityId
}

func (v *Volume) Center() mgl32.Vec3 {
	return v.Min.Add(v.Max).Mul(0.5)
}

func (v *Volume) HalfExtents() mgl32.Vec3 {
	return v.Max.Sub(v.Min).Mul(0.5)
}

// VolumeView tags a capture camera entity back to its owning volume.
type VolumeView struct {
	Volume EntityId
	Index  int
}

type OrthoProjection struct {
	Left   float32
	Right  float32
	Bottom float32
	Top    float32
	Near   float32
	Far    float32
}

func (p OrthoProjection) Matrix() mgl32.Mat4 {
	return mgl32.Ortho(p.Left, p.Right, p.Bottom, p.Top, p.Near, p.Far)
}

type VisibleEntities struct {
	Entities []EntityId
}

// viewRotation returns the capture orientation for view index 0..2:
// looking down +Z, +X (90 degrees about Y), and +Y (90 degrees about X).
func viewRotation(index int) mgl32.Quat {
	switch index {
	case 0:
		return mgl32.QuatIdent()
	case 1:
		return mgl32.QuatRotate(float32(math.Pi/2), mgl32.Vec3{0, 1, 0})
	case 2:
		return mgl32.QuatRotate(float32(math.Pi/2), mgl32.Vec3{1, 0, 0})
	default:
		panic("volume view index out of range")
	}
}

// viewProjection maps the volume box to clip space for view index. The
// half-extents are swizzled so the ortho depth axis always spans the axis
// the rotated camera captures along.
func viewProjection(halfExtents mgl32.Vec3, index int) OrthoProjection {
	var w, h, d float32
	switch index {
	case 0:
		w, h, d = halfExtents.X(), halfExtents.Y(), halfExtents.Z()
	case 1:
		w, h, d = halfExtents.Z(), halfExtents.Y(), halfExtents.X()
	case 2:
		w, h, d = halfExtents.X(), halfExtents.Z(), halfExtents.Y()
	default:
		panic("volume view index out of range")
	}
	return OrthoProjection{
		Left: -w, Right: w,
		Bottom: -h, Top: h,
		Near: -d, Far: d,
	}
}

// addVolumeViewsSystem synthesizes the three orthographic capture cameras
// for every volume that has none yet. Runs every frame but is a no-op for
// volumes already populated.
func addVolumeViewsSystem(cmd *Commands) {
	MakeQuery1[Volume](cmd).Map(func(eid EntityId, volume *Volume) bool {
		if len(volume.Views) > 0 {
			return true
		}

		center := volume.Center()
		halfExtents := volume.HalfExtents()

		for i := 0; i < 3; i++ {
			projection := viewProjection(halfExtents, i)
			transform := TransformComponent{
				Position: center,
				Rotation: viewRotation(i),
				Scale:    mgl32.Vec3{1, 1, 1},
			}

			viewId := cmd.AddEntity(
				VolumeView{Volume: eid, Index: i},
				transform,
				projection,
				viewFrustum(&transform, projection),
				VisibleEntities{},
			)
			volume.Views = append(volume.Views, viewId)
		}
		return true
	})
}

// viewFrustum combines inverse camera transform and ortho projection.
func viewFrustum(t *TransformComponent, p OrthoProjection) Frustum {
	view := buildModelMatrix(t).Inv()
	return extractFrustum(p.Matrix().Mul4(view))
}

// updateVolumeFrustaSystem recomputes every view frustum from its current
// transform and projection.
func updateVolumeFrustaSystem(cmd *Commands) {
	MakeQuery4[VolumeView, TransformComponent, OrthoProjection, Frustum](cmd).Map(
		func(eid EntityId, view *VolumeView, transform *TransformComponent, projection *OrthoProjection, frustum *Frustum) bool {
			*frustum = viewFrustum(transform, *projection)
			return true
		})
}
