package voxelgi

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldToVoxel_mapping(t *testing.T) {
	min := mgl32.Vec3{-10, -10, -10}
	max := mgl32.Vec3{10, 10, 10}

	x, y, z, ok := worldToVoxel(mgl32.Vec3{0, 0, 0}, min, max, 256)
	require.True(t, ok)
	assert.Equal(t, uint32(128), x)
	assert.Equal(t, uint32(128), y)
	assert.Equal(t, uint32(128), z)

	x, y, z, ok = worldToVoxel(min, min, max, 256)
	require.True(t, ok)
	assert.Equal(t, [3]uint32{0, 0, 0}, [3]uint32{x, y, z})

	// the far corner clamps into the last cell
	x, y, z, ok = worldToVoxel(max, min, max, 256)
	require.True(t, ok)
	assert.Equal(t, [3]uint32{255, 255, 255}, [3]uint32{x, y, z})
}

func TestWorldToVoxel_outsideVolume(t *testing.T) {
	min := mgl32.Vec3{-10, -10, -10}
	max := mgl32.Vec3{10, 10, 10}

	for _, position := range []mgl32.Vec3{
		{-10.5, 0, 0},
		{0, 11, 0},
		{0, 0, -20},
		{100, 100, 100},
	} {
		_, _, _, ok := worldToVoxel(position, min, max, 256)
		assert.False(t, ok, "position %v lies outside the volume", position)
	}
}

func TestVoxelIndex_isUniquePerCell(t *testing.T) {
	size := uint32(8)
	seen := make(set[uint32])
	for z := uint32(0); z < size; z++ {
		for y := uint32(0); y < size; y++ {
			for x := uint32(0); x < size; x++ {
				idx := voxelIndex(x, y, z, size)
				_, dup := seen[idx]
				require.False(t, dup, "index collision at (%d,%d,%d)", x, y, z)
				seen[idx] = struct{}{}
			}
		}
	}
	assert.Len(t, seen, int(size*size*size))
}

func TestAccumulate_threeViewsAverage(t *testing.T) {
	size := uint32(16)
	buffer := make([]uint32, size*size*size*accumCellWords)
	cell := voxelIndex(3, 7, 9, size)

	// the same surface hit from the three capture directions
	accumulate(buffer, cell, mgl32.Vec3{1, 0.5, 0.25})
	accumulate(buffer, cell, mgl32.Vec3{1, 0.5, 0.25})
	accumulate(buffer, cell, mgl32.Vec3{1, 0.5, 0.25})

	radiance, opacity := resolve(buffer, cell)
	assert.Equal(t, float32(1), opacity)
	assert.InDelta(t, 1.0, radiance.X(), 0.01)
	assert.InDelta(t, 0.5, radiance.Y(), 0.01)
	assert.InDelta(t, 0.25, radiance.Z(), 0.01)
}

func TestResolve_emptyCell(t *testing.T) {
	buffer := make([]uint32, 8*accumCellWords)
	radiance, opacity := resolve(buffer, 2)
	assert.Equal(t, mgl32.Vec3{}, radiance)
	assert.Equal(t, float32(0), opacity)
}

func TestResolve_mixedContributions(t *testing.T) {
	buffer := make([]uint32, accumCellWords)
	accumulate(buffer, 0, mgl32.Vec3{1, 1, 1})
	accumulate(buffer, 0, mgl32.Vec3{0, 0, 0})

	radiance, opacity := resolve(buffer, 0)
	assert.Equal(t, float32(1), opacity)
	assert.InDelta(t, 0.5, radiance.X(), 0.01)
	assert.InDelta(t, 0.5, radiance.Y(), 0.01)
	assert.InDelta(t, 0.5, radiance.Z(), 0.01)
}

// Rasterizes a centered unit cube's surface into a small grid from the
// three orthographic directions and checks opacity lands only where the
// cube actually is.
func TestVoxelization_unitCubeReference(t *testing.T) {
	size := uint32(16)
	min := mgl32.Vec3{-2, -2, -2}
	max := mgl32.Vec3{2, 2, 2}
	buffer := make([]uint32, size*size*size*accumCellWords)

	radiance := mgl32.Vec3{0.8, 0.8, 0.8}
	half := float32(0.5)
	steps := 32
	sample := func(i int) float32 {
		return -half + float32(i)/float32(steps-1)
	}

	// each view contributes the two faces it sees head on
	for i := 0; i < steps; i++ {
		for j := 0; j < steps; j++ {
			u, v := sample(i), sample(j)
			faces := []mgl32.Vec3{
				{u, v, -half}, {u, v, half}, // front view, -+Z faces
				{half, u, v}, {-half, u, v}, // side view, -+X faces
				{u, half, v}, {u, -half, v}, // top view, -+Y faces
			}
			for _, p := range faces {
				x, y, z, ok := worldToVoxel(p, min, max, size)
				require.True(t, ok)
				accumulate(buffer, voxelIndex(x, y, z, size), radiance)
			}
		}
	}

	occupied := 0
	for cell := uint32(0); cell < size*size*size; cell++ {
		r, opacity := resolve(buffer, cell)
		if opacity == 0 {
			continue
		}
		occupied++
		assert.InDelta(t, 0.8, r.X(), 0.01)

		// every occupied voxel must lie within the cube's footprint
		z := cell / (size * size)
		y := cell / size % size
		x := cell % size
		assert.GreaterOrEqual(t, x, uint32(6))
		assert.LessOrEqual(t, x, uint32(10))
		assert.GreaterOrEqual(t, y, uint32(6))
		assert.LessOrEqual(t, y, uint32(10))
		assert.GreaterOrEqual(t, z, uint32(6))
		assert.LessOrEqual(t, z, uint32(10))
	}
	assert.Greater(t, occupied, 0)
	assert.Less(t, occupied, int(size*size*size)/8, "most of the grid stays empty")
}
