package voxelgi

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolumeMeta_slotCapacity(t *testing.T) {
	meta := newVolumeMeta()

	for i := uint32(0); i < maxVolumes; i++ {
		assert.Equal(t, i*uniformStride, meta.allocVolumeOffset())
	}
	assert.Panics(t, func() { meta.allocVolumeOffset() })

	for i := uint32(0); i < maxVolumeViews; i++ {
		assert.Equal(t, i*uniformStride, meta.allocViewOffset())
	}
	assert.Panics(t, func() { meta.allocViewOffset() })
}

// A volume that is created and destroyed repeatedly must keep reusing
// the same uniform slot instead of exhausting the arena.
func TestVolumeMeta_slotChurn(t *testing.T) {
	app := NewApp()
	cmd := app.Commands()
	meta := newVolumeMeta()

	for cycle := 0; cycle < 3*maxVolumes; cycle++ {
		eid := cmd.AddEntity(&Volume{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}})
		app.FlushCommands()

		meta.bindings[eid] = nil
		meta.volumeOffsets[eid] = meta.allocVolumeOffset()
		assert.Equal(t, uint32(0), meta.volumeOffsets[eid], "cycle %d must reuse slot 0", cycle)

		cmd.RemoveEntity(eid)
		app.FlushCommands()
		dropVolumeBindingsSystem(cmd, meta)
	}

	assert.Equal(t, uint32(1), meta.nextVolumeSlot)
	assert.Empty(t, meta.volumeOffsets)
	assert.Empty(t, meta.bindings)
}

func TestDropVolume_releasesViewsAndSlots(t *testing.T) {
	app := NewApp()
	app.UseModules(GiModule{Enabled: true})
	cmd := app.Commands()

	volumeId := cmd.AddEntity(
		&Volume{Min: mgl32.Vec3{-10, -10, -10}, Max: mgl32.Vec3{10, 10, 10}},
		&TransformComponent{Scale: mgl32.Vec3{1, 1, 1}},
	)
	app.FlushCommands()
	app.RunFrame()

	var views []EntityId
	MakeQuery1[Volume](cmd).Map(func(eid EntityId, volume *Volume) bool {
		views = append(views, volume.Views...)
		return true
	})
	require.Len(t, views, 3)

	// register the volume the way prepareVolumes would, minus the GPU
	meta := resourceOf[VolumeMeta](app)
	meta.bindings[volumeId] = nil
	meta.volumeOffsets[volumeId] = meta.allocVolumeOffset()
	meta.volumeViews[volumeId] = append([]EntityId(nil), views...)
	for _, viewId := range views {
		meta.viewOffsets[viewId] = meta.allocViewOffset()
	}

	cmd.RemoveEntity(volumeId)
	app.FlushCommands()
	dropVolumeBindingsSystem(cmd, meta)
	app.FlushCommands()

	for _, viewId := range views {
		assert.Nil(t, cmd.GetAllComponents(viewId), "capture view %d must be despawned", viewId)
	}
	assert.Empty(t, meta.bindings)
	assert.Empty(t, meta.volumeOffsets)
	assert.Empty(t, meta.viewOffsets)
	assert.Empty(t, meta.volumeViews)
	assert.Len(t, meta.freeVolumeSlots, 1)
	assert.Len(t, meta.freeViewSlots, 3)
}
