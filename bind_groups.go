package voxelgi

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Bind groups are disposable: rebuilt from the persistent buffers every
// frame and released after submission, so resized or recreated volume
// resources can never be referenced through a stale group.

type volumeBindGroups struct {
	view      *wgpu.BindGroup // group 0, dynamic view offset
	mesh      *wgpu.BindGroup // group 2, dynamic model offset
	voxel     *wgpu.BindGroup // group 3
	clearFill *wgpu.BindGroup
	mipBase   *wgpu.BindGroup
	mips      [6][]*wgpu.BindGroup // [direction][target level-1]
}

func buildVolumeBindGroups(cfg *GiConfig, pipeline *VoxelPipeline, meta *VolumeMeta, b *VolumeBindings, gpu *GpuState) *volumeBindGroups {
	device := gpu.device
	groups := &volumeBindGroups{}

	groups.view = mustBindGroup(device, "Voxel View Bind Group", pipeline.viewLayout, []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: meta.viewUniforms, Size: uint64(len(toBufferBytes(GpuVolumeView{})))},
	})

	groups.mesh = mustBindGroup(device, "Voxel Mesh Bind Group", pipeline.meshLayout, []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: meta.modelUniforms, Size: uint64(len(toBufferBytes(GpuModel{})))},
	})

	groups.voxel = mustBindGroup(device, "Voxel Volume Bind Group", pipeline.voxelLayout, []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: meta.volumeUniforms, Size: uint64(len(toBufferBytes(GpuVolume{})))},
		{Binding: 1, TextureView: b.voxelView, Size: wgpu.WholeSize},
		{Binding: 2, Buffer: b.accumBuffer, Size: wgpu.WholeSize},
	})

	groups.clearFill = mustBindGroup(device, "Voxel Clear Fill Bind Group", pipeline.clearFillLayout, []wgpu.BindGroupEntry{
		{Binding: 0, TextureView: b.voxelView, Size: wgpu.WholeSize},
		{Binding: 1, Buffer: b.accumBuffer, Size: wgpu.WholeSize},
	})

	baseEntries := make([]wgpu.BindGroupEntry, 0, 7)
	for dir := 0; dir < 6; dir++ {
		baseEntries = append(baseEntries, wgpu.BindGroupEntry{
			Binding:     uint32(dir),
			TextureView: b.anisoMipViews[dir][0],
			Size:        wgpu.WholeSize,
		})
	}
	baseEntries = append(baseEntries, wgpu.BindGroupEntry{
		Binding:     6,
		TextureView: b.voxelView,
		Size:        wgpu.WholeSize,
	})
	groups.mipBase = mustBindGroup(device, "Voxel Mipmap Base Bind Group", pipeline.mipmapBaseLayout, baseEntries)

	for dir := 0; dir < 6; dir++ {
		levels := make([]*wgpu.BindGroup, 0, cfg.MipLevelCount-1)
		for level := uint32(1); level < cfg.MipLevelCount; level++ {
			levels = append(levels, mustBindGroup(device, "Voxel Mipmap Bind Group", pipeline.mipmapLayout, []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: b.anisoMipViews[dir][level-1], Size: wgpu.WholeSize},
				{Binding: 1, TextureView: b.anisoMipViews[dir][level], Size: wgpu.WholeSize},
			}))
		}
		groups.mips[dir] = levels
	}

	return groups
}

func (g *volumeBindGroups) release() {
	g.view.Release()
	g.mesh.Release()
	g.voxel.Release()
	g.clearFill.Release()
	g.mipBase.Release()
	for dir := 0; dir < 6; dir++ {
		for _, bg := range g.mips[dir] {
			bg.Release()
		}
	}
}

func mustBindGroup(device *wgpu.Device, label string, layout *wgpu.BindGroupLayout, entries []wgpu.BindGroupEntry) *wgpu.BindGroup {
	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		panic(err)
	}
	return bindGroup
}
