package voxelgi

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCullingApp() *App {
	app := NewApp()
	app.UseSystem(System(addVolumeViewsSystem).InStage(PostUpdate))
	app.UseSystem(System(updateVolumeFrustaSystem).InStage(PostUpdate))
	app.UseSystem(System(checkVisibilitySystem).InStage(PostUpdate))

	cmd := app.Commands()
	cmd.AddEntity(Volume{
		Min: mgl32.Vec3{-10, -10, -10},
		Max: mgl32.Vec3{10, 10, 10},
	})
	app.FlushCommands()
	return app
}

func spawnCube(app *App, position mgl32.Vec3, visible bool, extra ...any) EntityId {
	components := []any{
		Visibility{Visible: visible},
		ComputedVisibility{},
		Aabb{Min: mgl32.Vec3{-0.5, -0.5, -0.5}, Max: mgl32.Vec3{0.5, 0.5, 0.5}},
		TransformComponent{Position: position, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}},
	}
	components = append(components, extra...)

	eid := app.Commands().AddEntity(components...)
	app.FlushCommands()
	return eid
}

func visibleSets(app *App) map[EntityId][]EntityId {
	sets := make(map[EntityId][]EntityId)
	MakeQuery2[VolumeView, VisibleEntities](app.Commands()).Map(
		func(viewId EntityId, _ *VolumeView, visible *VisibleEntities) bool {
			sets[viewId] = append([]EntityId{}, visible.Entities...)
			return true
		})
	return sets
}

func computedVisibility(app *App, eid EntityId) bool {
	visible := false
	MakeQuery1[ComputedVisibility](app.Commands()).Map(func(id EntityId, c *ComputedVisibility) bool {
		if id == eid {
			visible = c.Visible
			return false
		}
		return true
	})
	return visible
}

func TestCulling_insideVolumeIsVisible(t *testing.T) {
	app := newCullingApp()
	cube := spawnCube(app, mgl32.Vec3{0, 0, 0}, true)

	app.RunFrame()

	sets := visibleSets(app)
	require.Len(t, sets, 3)
	for viewId, entities := range sets {
		assert.Contains(t, entities, cube, "cube at the origin should be visible in view %v", viewId)
	}
	assert.True(t, computedVisibility(app, cube))
}

func TestCulling_invisibleFlagWins(t *testing.T) {
	app := newCullingApp()
	cube := spawnCube(app, mgl32.Vec3{0, 0, 0}, false)

	app.RunFrame()

	for viewId, entities := range visibleSets(app) {
		assert.NotContains(t, entities, cube, "hidden cube must never appear in view %v", viewId)
	}
	assert.False(t, computedVisibility(app, cube))
}

func TestCulling_giExcludedTagWins(t *testing.T) {
	app := newCullingApp()
	cube := spawnCube(app, mgl32.Vec3{0, 0, 0}, true, NotGiCaster{})

	app.RunFrame()

	for viewId, entities := range visibleSets(app) {
		assert.NotContains(t, entities, cube, "GI-excluded cube must never appear in view %v", viewId)
	}
	assert.False(t, computedVisibility(app, cube))
}

func TestCulling_outsideVolumeIsCulled(t *testing.T) {
	app := newCullingApp()
	cube := spawnCube(app, mgl32.Vec3{100, 100, 100}, true)

	app.RunFrame()

	for viewId, entities := range visibleSets(app) {
		assert.NotContains(t, entities, cube, "far-away cube should be culled from view %v", viewId)
	}
	assert.False(t, computedVisibility(app, cube))
}

func TestCulling_layerMaskMismatch(t *testing.T) {
	app := newCullingApp()
	app.RunFrame() // create views first

	// restrict all views to layer bit 0
	MakeQuery1[VolumeView](app.Commands()).Map(func(viewId EntityId, _ *VolumeView) bool {
		app.Commands().AddComponents(viewId, RenderLayers{Mask: 0b01})
		return true
	})
	app.FlushCommands()

	matching := spawnCube(app, mgl32.Vec3{1, 0, 0}, true, RenderLayers{Mask: 0b01})
	mismatched := spawnCube(app, mgl32.Vec3{-1, 0, 0}, true, RenderLayers{Mask: 0b10})

	app.RunFrame()

	for _, entities := range visibleSets(app) {
		assert.Contains(t, entities, matching)
		assert.NotContains(t, entities, mismatched)
	}
}

func TestCulling_visibilityResetsEachFrame(t *testing.T) {
	app := newCullingApp()
	cube := spawnCube(app, mgl32.Vec3{0, 0, 0}, true)

	app.RunFrame()
	require.True(t, computedVisibility(app, cube))

	// flip the author flag; the computed flag must reset, not stick
	MakeQuery1[Visibility](app.Commands()).Map(func(eid EntityId, v *Visibility) bool {
		if eid == cube {
			v.Visible = false
		}
		return true
	})

	app.RunFrame()
	assert.False(t, computedVisibility(app, cube))
}

func TestCulling_noBoundsMeansAlwaysIncluded(t *testing.T) {
	app := newCullingApp()

	// no Aabb, no transform: frustum test is skipped for this entity
	eid := app.Commands().AddEntity(
		Visibility{Visible: true},
		ComputedVisibility{},
	)
	app.FlushCommands()

	app.RunFrame()

	for _, entities := range visibleSets(app) {
		assert.Contains(t, entities, eid)
	}
}
