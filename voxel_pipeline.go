package voxelgi

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/voxelgi/shaders"
)

// Bind group indices of the voxelization render pipeline. The WGSL side
// declares the same groups; any drift is a startup-time contract failure.
const (
	bindGroupView     = 0
	bindGroupMaterial = 1
	bindGroupMesh     = 2
	bindGroupVoxel    = 3
)

// VoxelPipeline bundles every layout and pipeline of the GI pass chain.
// Built once at install; creation failure panics because it means the
// host-side layouts no longer match the embedded shaders.
type VoxelPipeline struct {
	viewLayout     *wgpu.BindGroupLayout
	materialLayout *wgpu.BindGroupLayout
	meshLayout     *wgpu.BindGroupLayout
	voxelLayout    *wgpu.BindGroupLayout

	clearFillLayout  *wgpu.BindGroupLayout
	mipmapBaseLayout *wgpu.BindGroupLayout
	mipmapLayout     *wgpu.BindGroupLayout

	renderPipeline *wgpu.RenderPipeline

	clearPipeline      *wgpu.ComputePipeline
	fillPipeline       *wgpu.ComputePipeline
	mipmapBasePipeline *wgpu.ComputePipeline
	mipmapPipelines    [6]*wgpu.ComputePipeline

	defaultSampler *wgpu.Sampler
}

func buildVoxelPipeline(gpu *GpuState) *VoxelPipeline {
	p := &VoxelPipeline{}
	device := gpu.device

	p.viewLayout = mustBindGroupLayout(device, "Voxel View Layout", []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
			},
		},
	})

	p.materialLayout = mustBindGroupLayout(device, "Voxel Material Layout", []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type: wgpu.BufferBindingTypeUniform,
			},
		},
		{
			Binding:    1,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
		{
			Binding:    2,
			Visibility: wgpu.ShaderStageFragment,
			Sampler: wgpu.SamplerBindingLayout{
				Type: wgpu.SamplerBindingTypeFiltering,
			},
		},
	})

	p.meshLayout = mustBindGroupLayout(device, "Voxel Mesh Layout", []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
			},
		},
	})

	p.voxelLayout = mustBindGroupLayout(device, "Voxel Volume Layout", []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
			},
		},
		{
			Binding:    1,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension3D,
			},
		},
		{
			Binding:    2,
			Visibility: wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type: wgpu.BufferBindingTypeStorage,
			},
		},
	})

	p.clearFillLayout = mustBindGroupLayout(device, "Voxel Clear Fill Layout", []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageCompute,
			StorageTexture: wgpu.StorageTextureBindingLayout{
				Access:        wgpu.StorageTextureAccessWriteOnly,
				Format:        wgpu.TextureFormatRGBA16Float,
				ViewDimension: wgpu.TextureViewDimension3D,
			},
		},
		{
			Binding:    1,
			Visibility: wgpu.ShaderStageCompute,
			Buffer: wgpu.BufferBindingLayout{
				Type: wgpu.BufferBindingTypeStorage,
			},
		},
	})

	// six write targets, one per direction, plus the resolved voxel input
	mipmapBaseEntries := make([]wgpu.BindGroupLayoutEntry, 0, 7)
	for dir := uint32(0); dir < 6; dir++ {
		mipmapBaseEntries = append(mipmapBaseEntries, wgpu.BindGroupLayoutEntry{
			Binding:    dir,
			Visibility: wgpu.ShaderStageCompute,
			StorageTexture: wgpu.StorageTextureBindingLayout{
				Access:        wgpu.StorageTextureAccessWriteOnly,
				Format:        wgpu.TextureFormatRGBA16Float,
				ViewDimension: wgpu.TextureViewDimension3D,
			},
		})
	}
	mipmapBaseEntries = append(mipmapBaseEntries, wgpu.BindGroupLayoutEntry{
		Binding:    6,
		Visibility: wgpu.ShaderStageCompute,
		Texture: wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeFloat,
			ViewDimension: wgpu.TextureViewDimension3D,
		},
	})
	p.mipmapBaseLayout = mustBindGroupLayout(device, "Voxel Mipmap Base Layout", mipmapBaseEntries)

	p.mipmapLayout = mustBindGroupLayout(device, "Voxel Mipmap Layout", []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageCompute,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension3D,
			},
		},
		{
			Binding:    1,
			Visibility: wgpu.ShaderStageCompute,
			StorageTexture: wgpu.StorageTextureBindingLayout{
				Access:        wgpu.StorageTextureAccessWriteOnly,
				Format:        wgpu.TextureFormatRGBA16Float,
				ViewDimension: wgpu.TextureViewDimension3D,
			},
		},
	})

	p.renderPipeline = buildVoxelRenderPipeline(p, gpu)
	buildVoxelComputePipelines(p, gpu)

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Voxel Material Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		panic(err)
	}
	p.defaultSampler = sampler

	return p
}

func buildVoxelRenderPipeline(p *VoxelPipeline, gpu *GpuState) *wgpu.RenderPipeline {
	device := gpu.device

	shader := createShaderModule("voxel.wgsl", shaders.VoxelWGSL, gpu)
	defer shader.Release()

	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: "Voxelization Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{
			p.viewLayout, p.materialLayout, p.meshLayout, p.voxelLayout,
		},
	})
	if err != nil {
		panic(err)
	}
	defer layout.Release()

	// ortho projection through the whole volume: no culling, no depth
	// test, single sample. Every fragment contributes.
	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Voxelization Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: 8 * 4, // position + normal + uv
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{ShaderLocation: 0, Offset: 0, Format: wgpu.VertexFormatFloat32x3},
						{ShaderLocation: 1, Offset: 12, Format: wgpu.VertexFormatFloat32x3},
						{ShaderLocation: 2, Offset: 24, Format: wgpu.VertexFormatFloat32x2},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    wgpu.TextureFormatRGBA8Unorm,
					Blend:     nil,
					WriteMask: wgpu.ColorWriteMaskNone,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: nil,
		Multisample: wgpu.MultisampleState{
			Count:                  1,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	})
	if err != nil {
		panic(err)
	}
	return pipeline
}

func buildVoxelComputePipelines(p *VoxelPipeline, gpu *GpuState) {
	device := gpu.device

	resolveShader := createShaderModule("voxel_resolve.wgsl", shaders.VoxelResolveWGSL, gpu)
	defer resolveShader.Release()
	mipmapShader := createShaderModule("voxel_mipmap.wgsl", shaders.VoxelMipmapWGSL, gpu)
	defer mipmapShader.Release()
	baseShader := createShaderModule("mipmap_base.wgsl", shaders.MipmapBaseWGSL, gpu)
	defer baseShader.Release()

	p.clearPipeline = mustComputePipeline(device, "Voxel Clear", p.clearFillLayout, resolveShader, "clear")
	p.fillPipeline = mustComputePipeline(device, "Voxel Fill", p.clearFillLayout, resolveShader, "fill")
	p.mipmapBasePipeline = mustComputePipeline(device, "Voxel Mipmap Base", p.mipmapBaseLayout, baseShader, "mipmap")

	for dir := 0; dir < 6; dir++ {
		entryPoint := fmt.Sprintf("mipmap_%d", dir)
		p.mipmapPipelines[dir] = mustComputePipeline(device,
			"Voxel Mipmap "+entryPoint, p.mipmapLayout, mipmapShader, entryPoint)
	}
}

func mustBindGroupLayout(device *wgpu.Device, label string, entries []wgpu.BindGroupLayoutEntry) *wgpu.BindGroupLayout {
	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		panic(err)
	}
	return layout
}

func mustComputePipeline(device *wgpu.Device, label string, bindLayout *wgpu.BindGroupLayout, shader *wgpu.ShaderModule, entryPoint string) *wgpu.ComputePipeline {
	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label + " Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bindLayout},
	})
	if err != nil {
		panic(err)
	}
	defer layout.Release()

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label,
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     shader,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		panic(err)
	}
	return pipeline
}
