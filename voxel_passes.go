package voxelgi

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// renderVoxelGiSystem executes the full GI chain for every registered
// volume: clear, voxelize from the three capture views, resolve, then
// rebuild the anisotropic mip pyramid. One command stream, one submit;
// all of it skipped when the flag is off.
func renderVoxelGiSystem(cmd *Commands, cfg *GiConfig, gpu *GpuState, meta *VolumeMeta,
	pipeline *VoxelPipeline, phase *VoxelPhase, gpuAssets *GpuAssets, drawFns *DrawFunctions) {
	if !cfg.Enabled {
		return
	}

	volumes := collectVolumePlanInputs(cmd, meta, phase)
	plan := planFrame(cfg, volumes)
	if len(plan.Stages) == 0 {
		return
	}

	encoder, err := gpu.device.CreateCommandEncoder(nil)
	if err != nil {
		panic(err)
	}

	groupsByVolume := make(map[EntityId]*volumeBindGroups, len(volumes))
	for _, v := range volumes {
		groupsByVolume[v.Volume] = buildVolumeBindGroups(cfg, pipeline, meta, meta.bindings[v.Volume], gpu)
	}

	ctx := &drawContext{assets: gpuAssets}

	for _, op := range plan.Stages {
		groups := groupsByVolume[op.Volume]

		switch op.Stage {
		case StageClear:
			runComputeOp(encoder, pipeline.clearPipeline, groups.clearFill, op.Dispatches)
		case StageFill:
			runComputeOp(encoder, pipeline.fillPipeline, groups.clearFill, op.Dispatches)
		case StageMipBase:
			runComputeOp(encoder, pipeline.mipmapBasePipeline, groups.mipBase, op.Dispatches)
		case StageMip:
			runMipOp(encoder, pipeline, groups, op.Dispatches)
		case StageVoxelize:
			runVoxelizeOp(encoder, op, pipeline, meta, phase, groups, drawFns, ctx)
		default:
			panic(fmt.Sprintf("unknown stage %q in frame plan", op.Stage))
		}
	}

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		panic(err)
	}
	gpu.queue.Submit(cmdBuffer)

	cmdBuffer.Release()
	encoder.Release()
	for _, groups := range groupsByVolume {
		groups.release()
	}
}

func collectVolumePlanInputs(cmd *Commands, meta *VolumeMeta, phase *VoxelPhase) []volumePlanInput {
	var volumes []volumePlanInput
	MakeQuery1[Volume](cmd).Map(func(eid EntityId, volume *Volume) bool {
		if _, registered := meta.bindings[eid]; !registered {
			return true
		}
		input := volumePlanInput{Volume: eid}
		for _, viewId := range volume.Views {
			input.Views = append(input.Views, ViewDraw{
				View:      viewId,
				ItemCount: len(phase.Items[viewId]),
			})
		}
		volumes = append(volumes, input)
		return true
	})
	return volumes
}

func runComputeOp(encoder *wgpu.CommandEncoder, pipeline *wgpu.ComputePipeline, bindGroup *wgpu.BindGroup, dispatches []Dispatch) {
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	for _, d := range dispatches {
		pass.DispatchWorkgroups(d.X, d.Y, d.Z)
	}
	pass.End()
	pass.Release()
}

func runMipOp(encoder *wgpu.CommandEncoder, pipeline *VoxelPipeline, groups *volumeBindGroups, dispatches []Dispatch) {
	pass := encoder.BeginComputePass(nil)
	for _, d := range dispatches {
		pass.SetPipeline(pipeline.mipmapPipelines[d.Direction])
		pass.SetBindGroup(0, groups.mips[d.Direction][d.Level-1], nil)
		pass.DispatchWorkgroups(d.X, d.Y, d.Z)
	}
	pass.End()
	pass.Release()
}

func runVoxelizeOp(encoder *wgpu.CommandEncoder, op StageOp, pipeline *VoxelPipeline, meta *VolumeMeta,
	phase *VoxelPhase, groups *volumeBindGroups, drawFns *DrawFunctions, ctx *drawContext) {
	bindings := meta.bindings[op.Volume]

	for _, draw := range op.Draws {
		items := phase.Items[draw.View]
		if len(items) == 0 {
			continue
		}

		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			Label: "Voxelization Pass",
			ColorAttachments: []wgpu.RenderPassColorAttachment{
				{
					View:       bindings.colorAttachment,
					LoadOp:     wgpu.LoadOpClear,
					StoreOp:    wgpu.StoreOpDiscard,
					ClearValue: wgpu.Color{},
				},
			},
		})

		pass.SetPipeline(pipeline.renderPipeline)
		pass.SetBindGroup(bindGroupView, groups.view, []uint32{meta.viewOffsets[draw.View]})
		pass.SetBindGroup(bindGroupVoxel, groups.voxel, []uint32{meta.volumeOffsets[op.Volume]})

		for _, item := range items {
			fn, ok := drawFns.lookup(item.Kind)
			if !ok {
				// unknown material kind: never registered, skip quietly
				continue
			}
			pass.SetBindGroup(bindGroupMesh, groups.mesh, []uint32{item.ModelOffset})
			fn(pass, item, ctx)
		}

		pass.End()
		pass.Release()
	}
}
