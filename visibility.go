package voxelgi

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Visibility is the author-controlled flag; ComputedVisibility is what
// culling decided this frame.
type Visibility struct {
	Visible bool
}

type ComputedVisibility struct {
	Visible bool
}

// RenderLayers is a bitmask; an absent component means "all layers".
type RenderLayers struct {
	Mask uint32
}

const renderLayersAll uint32 = 0xFFFFFFFF

func (r *RenderLayers) mask() uint32 {
	if r == nil {
		return renderLayersAll
	}
	return r.Mask
}

func (r *RenderLayers) intersects(other *RenderLayers) bool {
	return r.mask()&other.mask() != 0
}

// Aabb is a local-space bounding box, positioned by the entity transform.
type Aabb struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// NotGiCaster excludes an entity from voxelization capture entirely.
type NotGiCaster struct{}

// checkVisibilitySystem culls scene entities against every volume view.
// ComputedVisibility resets to false first; an entity passing the checks
// for at least one view becomes globally visible again.
func checkVisibilitySystem(cmd *Commands) {
	excluded := make(set[EntityId])
	MakeQuery1[NotGiCaster](cmd).Map(func(eid EntityId, _ *NotGiCaster) bool {
		excluded[eid] = struct{}{}
		return true
	})

	MakeQuery1[ComputedVisibility](cmd).Map(func(eid EntityId, computed *ComputedVisibility) bool {
		computed.Visible = false
		return true
	})

	MakeQuery3[VolumeView, Frustum, VisibleEntities](cmd).Map(
		func(viewId EntityId, view *VolumeView, frustum *Frustum, visibleEntities *VisibleEntities) bool {
			viewLayers := viewRenderLayers(cmd, viewId)

			visibleEntities.Entities = visibleEntities.Entities[:0]

			MakeQuery5[Visibility, ComputedVisibility, RenderLayers, Aabb, TransformComponent](cmd).Map(
				func(eid EntityId, visibility *Visibility, computed *ComputedVisibility,
					layers *RenderLayers, aabb *Aabb, transform *TransformComponent) bool {
					if _, skip := excluded[eid]; skip {
						return true
					}
					if !visibility.Visible {
						return true
					}
					if !viewLayers.intersects(layers) {
						return true
					}
					if aabb != nil && transform != nil {
						model := buildModelMatrix(transform)
						if !frustum.intersectsObb(aabb.Min, aabb.Max, model) {
							return true
						}
					}

					computed.Visible = true
					visibleEntities.Entities = append(visibleEntities.Entities, eid)
					return true
				}, RenderLayers{}, Aabb{}, TransformComponent{})

			return true
		})
}

func viewRenderLayers(cmd *Commands, viewId EntityId) *RenderLayers {
	var res *RenderLayers
	MakeQuery2[VolumeView, RenderLayers](cmd).Map(func(eid EntityId, _ *VolumeView, layers *RenderLayers) bool {
		if eid == viewId {
			res = layers
			return false
		}
		return true
	})
	return res
}
