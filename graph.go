package voxelgi

import (
	"fmt"
)

// The GI pass chain is a fixed ordered list of stages with declared
// resource edges. Validation happens once, at module install; a bad
// graph is a wiring bug and panics there rather than mid-frame.

type StageId string

const (
	StageClear    StageId = "clear"
	StageVoxelize StageId = "voxelize"
	StageFill     StageId = "fill"
	StageMipBase  StageId = "mipmap_base"
	StageMip      StageId = "mipmap"
)

type resourceKey string

const (
	resViewEntity   resourceKey = "view_entity" // graph input: the capture camera entity
	resAccumBuffer  resourceKey = "accum_buffer"
	resVoxelTexture resourceKey = "voxel_texture"
	resAnisoMips    resourceKey = "aniso_mips"
)

type stageDescriptor struct {
	id     StageId
	reads  []resourceKey
	writes []resourceKey
}

type passGraph struct {
	inputs []resourceKey
	stages []stageDescriptor
}

func giPassGraph() passGraph {
	return passGraph{
		inputs: []resourceKey{resViewEntity},
		stages: []stageDescriptor{
			{
				id:     StageClear,
				writes: []resourceKey{resAccumBuffer, resVoxelTexture},
			},
			{
				id:     StageVoxelize,
				reads:  []resourceKey{resViewEntity, resAccumBuffer},
				writes: []resourceKey{resAccumBuffer},
			},
			{
				id:     StageFill,
				reads:  []resourceKey{resAccumBuffer},
				writes: []resourceKey{resVoxelTexture},
			},
			{
				id:     StageMipBase,
				reads:  []resourceKey{resVoxelTexture},
				writes: []resourceKey{resAnisoMips},
			},
			{
				id:     StageMip,
				reads:  []resourceKey{resAnisoMips},
				writes: []resourceKey{resAnisoMips},
			},
		},
	}
}

// validate checks that stage ids are unique, every declared input is
// distinct, and every read is satisfied by a graph input or an earlier
// stage's write.
func (g passGraph) validate() error {
	seenInputs := make(set[resourceKey])
	for _, input := range g.inputs {
		if _, dup := seenInputs[input]; dup {
			return fmt.Errorf("duplicate graph input %q", input)
		}
		seenInputs[input] = struct{}{}
	}

	available := make(set[resourceKey])
	for input := range seenInputs {
		available[input] = struct{}{}
	}

	seenStages := make(set[StageId])
	for _, stage := range g.stages {
		if _, dup := seenStages[stage.id]; dup {
			return fmt.Errorf("duplicate stage %q", stage.id)
		}
		seenStages[stage.id] = struct{}{}

		for _, r := range stage.reads {
			if _, ok := available[r]; !ok {
				return fmt.Errorf("stage %q reads %q before any stage writes it", stage.id, r)
			}
		}
		for _, w := range stage.writes {
			available[w] = struct{}{}
		}
	}
	return nil
}

// FramePlan is the work list of one frame for all volumes. It is built
// by pure functions so tests can assert on it without a GPU.

type Dispatch struct {
	X, Y, Z   uint32
	Direction int    // -1 for direction-independent dispatches
	Level     uint32 // target mip level, 0 for clear/fill/base
}

type ViewDraw struct {
	View      EntityId
	ItemCount int
}

type StageOp struct {
	Stage      StageId
	Volume     EntityId
	Dispatches []Dispatch
	Draws      []ViewDraw
}

type FramePlan struct {
	Stages []StageOp
}

func (p FramePlan) DispatchCount() int {
	n := 0
	for _, op := range p.Stages {
		n += len(op.Dispatches)
	}
	return n
}

func (p FramePlan) DrawCount() int {
	n := 0
	for _, op := range p.Stages {
		for _, d := range op.Draws {
			n += d.ItemCount
		}
	}
	return n
}

// volumePlanInput is what planning needs to know about one volume.
type volumePlanInput struct {
	Volume EntityId
	Views  []ViewDraw
}

// clearDispatch covers the full voxel domain in 8x8x8 thread groups.
func clearDispatch(voxelSize uint32) Dispatch {
	count := workgroups(voxelSize)
	return Dispatch{X: count, Y: count, Z: count, Direction: -1}
}

// fill resolves the accumulation buffer over the same domain as clear.
func fillDispatch(voxelSize uint32) Dispatch {
	return clearDispatch(voxelSize)
}

// baseMipDispatch produces level 0 of all six chains at once: the output
// is half the voxel size across the capture plane and full depth in Z.
func baseMipDispatch(voxelSize uint32) Dispatch {
	count := workgroups(voxelSize / 2)
	return Dispatch{X: count, Y: count, Z: workgroups(voxelSize), Direction: -1}
}

// mipDispatch downsamples level-1..N of one direction. Chain levels keep
// the 1:1:2 shape of level 0, so Z needs twice the lateral group count;
// every axis halves per level and floors at 1.
func mipDispatch(voxelSize uint32, direction int, level uint32) Dispatch {
	size := voxelSize / (2 << level)
	depth := voxelSize >> level
	count := workgroups(size)
	return Dispatch{X: count, Y: count, Z: workgroups(depth), Direction: direction, Level: level}
}

func workgroups(extent uint32) uint32 {
	count := extent / 8
	if count < 1 {
		count = 1
	}
	return count
}

// planFrame lays out the whole frame. A disabled flag yields an empty
// plan: zero dispatches, zero draws.
func planFrame(cfg *GiConfig, volumes []volumePlanInput) FramePlan {
	var plan FramePlan
	if !cfg.Enabled {
		return plan
	}

	for _, volume := range volumes {
		plan.Stages = append(plan.Stages, StageOp{
			Stage:      StageClear,
			Volume:     volume.Volume,
			Dispatches: []Dispatch{clearDispatch(cfg.VoxelSize)},
		})

		plan.Stages = append(plan.Stages, StageOp{
			Stage:  StageVoxelize,
			Volume: volume.Volume,
			Draws:  volume.Views,
		})

		plan.Stages = append(plan.Stages, StageOp{
			Stage:      StageFill,
			Volume:     volume.Volume,
			Dispatches: []Dispatch{fillDispatch(cfg.VoxelSize)},
		})

		plan.Stages = append(plan.Stages, StageOp{
			Stage:      StageMipBase,
			Volume:     volume.Volume,
			Dispatches: []Dispatch{baseMipDispatch(cfg.VoxelSize)},
		})

		var mips []Dispatch
		for level := uint32(1); level < cfg.MipLevelCount; level++ {
			for dir := 0; dir < 6; dir++ {
				mips = append(mips, mipDispatch(cfg.VoxelSize, dir, level))
			}
		}
		plan.Stages = append(plan.Stages, StageOp{
			Stage:      StageMip,
			Volume:     volume.Volume,
			Dispatches: mips,
		})
	}
	return plan
}
