package voxelgi

import (
	"github.com/go-gl/mathgl/mgl32"
)

// CPU mirror of the voxelization shader data contract. The GPU side in
// shaders/voxel.wgsl performs the same index math and fixed-point
// accumulation; keeping the host copy lets the encoding be unit tested.

// accumulation buffer layout: 4 uint32 per voxel
// [r<<8 fixed point, g<<8, b<<8, contribution count]
const accumCellWords = 4
const accumFixedScale = 256

// voxelIndex flattens an integer voxel coordinate into the linear cell
// index used by the accumulation buffer.
func voxelIndex(x, y, z, voxelSize uint32) uint32 {
	return x + y*voxelSize + z*voxelSize*voxelSize
}

// worldToVoxel maps a world position inside [min,max] to voxel coords.
// Positions outside the volume return ok=false.
func worldToVoxel(position, min, max mgl32.Vec3, voxelSize uint32) (x, y, z uint32, ok bool) {
	extent := max.Sub(min)
	rel := position.Sub(min)
	for axis := 0; axis < 3; axis++ {
		if rel[axis] < 0 || rel[axis] > extent[axis] || extent[axis] <= 0 {
			return 0, 0, 0, false
		}
	}

	fx := rel.X() / extent.X() * float32(voxelSize)
	fy := rel.Y() / extent.Y() * float32(voxelSize)
	fz := rel.Z() / extent.Z() * float32(voxelSize)

	clamp := func(v float32) uint32 {
		if v < 0 {
			return 0
		}
		if v >= float32(voxelSize) {
			return voxelSize - 1
		}
		return uint32(v)
	}
	return clamp(fx), clamp(fy), clamp(fz), true
}

// accumulate adds one fragment's radiance into the accumulation cell the
// way the fragment shader does with atomicAdd.
func accumulate(buffer []uint32, cell uint32, radiance mgl32.Vec3) {
	base := cell * accumCellWords
	buffer[base+0] += uint32(radiance.X() * accumFixedScale)
	buffer[base+1] += uint32(radiance.Y() * accumFixedScale)
	buffer[base+2] += uint32(radiance.Z() * accumFixedScale)
	buffer[base+3]++
}

// resolve averages a cell's accumulated contributions into final
// radiance and opacity, matching the fill compute pass.
func resolve(buffer []uint32, cell uint32) (radiance mgl32.Vec3, opacity float32) {
	base := cell * accumCellWords
	count := buffer[base+3]
	if count == 0 {
		return mgl32.Vec3{}, 0
	}
	inv := 1 / (float32(count) * accumFixedScale)
	radiance = mgl32.Vec3{
		float32(buffer[base+0]) * inv,
		float32(buffer[base+1]) * inv,
		float32(buffer[base+2]) * inv,
	}
	return radiance, 1
}
