package voxelgi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGiModule_installsCpuSideWithoutGpu(t *testing.T) {
	app := NewApp()
	app.UseModules(GiModule{Enabled: true})

	cfg := resourceOf[GiConfig](app)
	require.NotNil(t, cfg)
	assert.Equal(t, uint32(256), cfg.VoxelSize)
	assert.Equal(t, uint32(7), cfg.MipLevelCount)
	assert.True(t, cfg.Enabled)

	assert.NotNil(t, resourceOf[DrawFunctions](app))
	assert.NotNil(t, resourceOf[VoxelPhase](app))
	assert.NotNil(t, resourceOf[VolumeMeta](app))

	// no GpuState resource, so a frame must run on CPU systems alone
	app.RunFrame()
}

func TestGiModule_overridesDefaults(t *testing.T) {
	app := NewApp()
	app.UseModules(GiModule{VoxelSize: 64, MipLevelCount: 3})

	cfg := resourceOf[GiConfig](app)
	require.NotNil(t, cfg)
	assert.Equal(t, uint32(64), cfg.VoxelSize)
	assert.Equal(t, uint32(3), cfg.MipLevelCount)
	assert.False(t, cfg.Enabled)
}

func TestGiModule_rejectsUnalignedVoxelSize(t *testing.T) {
	app := NewApp()
	assert.Panics(t, func() {
		app.UseModules(GiModule{VoxelSize: 100})
	})
}

func TestGiModule_rejectsExcessiveMipLevels(t *testing.T) {
	app := NewApp()
	assert.Panics(t, func() {
		app.UseModules(GiModule{VoxelSize: 64, MipLevelCount: 12})
	})
}

func TestMipLevelCapacity(t *testing.T) {
	assert.Equal(t, uint32(8), mipLevelCapacity(256))
	assert.Equal(t, uint32(6), mipLevelCapacity(64))
	assert.Equal(t, uint32(4), mipLevelCapacity(16))
}

func TestDrawFunctions_duplicateKindPanics(t *testing.T) {
	fns := newDrawFunctions()
	fns.Register(MaterialKindStandard, drawVoxelMesh)
	assert.Panics(t, func() {
		fns.Register(MaterialKindStandard, drawVoxelMesh)
	})
}

func TestDrawFunctions_lookup(t *testing.T) {
	fns := newDrawFunctions()
	fns.Register(MaterialKindStandard, drawVoxelMesh)

	fn, ok := fns.lookup(MaterialKindStandard)
	assert.True(t, ok)
	assert.NotNil(t, fn)

	_, ok = fns.lookup(MaterialKind("unlit"))
	assert.False(t, ok)
}
