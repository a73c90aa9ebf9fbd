package shaders

import (
	_ "embed"
)

//go:embed voxel.wgsl
var VoxelWGSL string

//go:embed voxel_resolve.wgsl
var VoxelResolveWGSL string

//go:embed mipmap_base.wgsl
var MipmapBaseWGSL string

//go:embed voxel_mipmap.wgsl
var VoxelMipmapWGSL string
