package voxelgi

import (
	"fmt"
	"reflect"
)

// GiConfig is fixed at install time. Enabled may be toggled at runtime;
// resolution and mip depth may not.
type GiConfig struct {
	Enabled       bool
	VoxelSize     uint32
	MipLevelCount uint32
}

const defaultVoxelSize = 256
const defaultMipLevelCount = 7

// GiModule installs the voxel GI pipeline: volume view synthesis and
// culling after the scene update, GPU preparation and draw queueing
// before rendering, then the clear/voxelize/mip chain in the render
// stage. Requires ClientModule and AssetServerModule when a GPU is
// present; without a GpuState resource only the CPU-side systems run.
type GiModule struct {
	Enabled       bool
	VoxelSize     uint32
	MipLevelCount uint32
}

func (mod GiModule) Install(app *App, cmd *Commands) {
	cfg := &GiConfig{
		Enabled:       mod.Enabled,
		VoxelSize:     mod.VoxelSize,
		MipLevelCount: mod.MipLevelCount,
	}
	if cfg.VoxelSize == 0 {
		cfg.VoxelSize = defaultVoxelSize
	}
	if cfg.MipLevelCount == 0 {
		cfg.MipLevelCount = defaultMipLevelCount
	}
	if cfg.VoxelSize%8 != 0 {
		panic(fmt.Sprintf("voxel size %d is not a multiple of the 8x8x8 workgroup", cfg.VoxelSize))
	}
	if maxMips := mipLevelCapacity(cfg.VoxelSize); cfg.MipLevelCount > maxMips {
		panic(fmt.Sprintf("mip level count %d exceeds the %d levels a voxel size of %d supports",
			cfg.MipLevelCount, maxMips, cfg.VoxelSize))
	}

	if err := giPassGraph().validate(); err != nil {
		panic(fmt.Sprintf("voxel GI pass graph is miswired: %v", err))
	}

	drawFns := newDrawFunctions()
	drawFns.Register(MaterialKindStandard, drawVoxelMesh)

	cmd.AddResources(cfg, drawFns, newVoxelPhase(), newVolumeMeta(), newGpuAssets())

	app.UseSystem(System(addVolumeViewsSystem).InStage(PostUpdate))
	app.UseSystem(System(updateVolumeFrustaSystem).InStage(PostUpdate))
	app.UseSystem(System(checkVisibilitySystem).InStage(PostUpdate))

	if gpu := resourceOf[GpuState](app); gpu != nil {
		cmd.AddResources(buildVoxelPipeline(gpu))

		app.UseSystem(System(prepareVolumesSystem).InStage(PreRender))
		app.UseSystem(System(prepareAssetsSystem).InStage(PreRender))
		app.UseSystem(System(queueVoxelMeshesSystem).InStage(PreRender))
		app.UseSystem(System(renderVoxelGiSystem).InStage(Render))
		app.UseSystem(System(dropVolumeBindingsSystem).InStage(PostRender))
	}

	app.Logger().Infof("voxel GI installed: size=%d mips=%d enabled=%v",
		cfg.VoxelSize, cfg.MipLevelCount, cfg.Enabled)
}

// mipLevelCapacity counts how many times the base anisotropic edge
// (half the voxel size) can halve before reaching zero.
func mipLevelCapacity(voxelSize uint32) uint32 {
	levels := uint32(0)
	for edge := voxelSize / 2; edge >= 1; edge /= 2 {
		levels++
	}
	return levels
}

func resourceOf[T any](app *App) *T {
	var zero T
	if res, ok := app.resources[reflect.TypeOf(zero)]; ok {
		return res.(*T)
	}
	return nil
}
