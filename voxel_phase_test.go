package voxelgi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModelOffsetArena_stride(t *testing.T) {
	var arena modelOffsetArena
	assert.Equal(t, uint32(0), arena.alloc())
	assert.Equal(t, uint32(uniformStride), arena.alloc())
	assert.Equal(t, uint32(2*uniformStride), arena.alloc())
}

// A full frame must never drop queued items: partial queues would
// voxelize from fewer than three directions.
func TestModelOffsetArena_overflowPanics(t *testing.T) {
	var arena modelOffsetArena
	for i := 0; i < maxDrawItems; i++ {
		arena.alloc()
	}
	assert.Panics(t, func() { arena.alloc() })
}
