package voxelgi

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// VoxelPhaseItem is one queued draw for one volume view. Items are
// consumed once per frame and requeued from scratch the next.
type VoxelPhaseItem struct {
	Entity       EntityId
	Mesh         AssetId
	Material     AssetId
	Kind         MaterialKind
	ModelOffset  uint32  // dynamic offset into the model uniform buffer
	Distance     float32 // kept for the phase contract; always zero, no depth sort
}

// VoxelPhase holds the per-view draw queues of the current frame.
type VoxelPhase struct {
	Items map[EntityId][]VoxelPhaseItem // keyed by view entity
}

func newVoxelPhase() *VoxelPhase {
	return &VoxelPhase{Items: make(map[EntityId][]VoxelPhaseItem)}
}

// drawContext is what a draw function gets to work with: the
// GPU-resident asset tables uploaded by prepareAssets.
type drawContext struct {
	assets *GpuAssets
}

// DrawFunction records one phase item into an open voxelization pass.
// Returning false means a required GPU asset was missing and the item
// was skipped.
type DrawFunction func(pass *wgpu.RenderPassEncoder, item VoxelPhaseItem, ctx *drawContext) bool

// DrawFunctions maps material kinds to draw functions. Adding a material
// kind is a registration step; duplicate registration is a wiring bug.
type DrawFunctions struct {
	byKind map[MaterialKind]DrawFunction
}

func newDrawFunctions() *DrawFunctions {
	return &DrawFunctions{byKind: make(map[MaterialKind]DrawFunction)}
}

func (d *DrawFunctions) Register(kind MaterialKind, fn DrawFunction) {
	if _, ok := d.byKind[kind]; ok {
		panic(fmt.Sprintf("draw function for material kind %q already registered", kind))
	}
	d.byKind[kind] = fn
}

func (d *DrawFunctions) lookup(kind MaterialKind) (DrawFunction, bool) {
	fn, ok := d.byKind[kind]
	return fn, ok
}

// GPU-resident asset tables, uploaded lazily from the AssetServer.

type GpuMesh struct {
	vertexBuf  *wgpu.Buffer
	indexBuf   *wgpu.Buffer
	indexCount uint32
	version    uint
}

type GpuMaterial struct {
	uniformBuf *wgpu.Buffer
	bindGroup  *wgpu.BindGroup
	version    uint
}

type GpuAssets struct {
	meshes    map[AssetId]*GpuMesh
	materials map[AssetId]*GpuMaterial

	whiteTexture *wgpu.TextureView
}

func newGpuAssets() *GpuAssets {
	return &GpuAssets{
		meshes:    make(map[AssetId]*GpuMesh),
		materials: make(map[AssetId]*GpuMaterial),
	}
}

type GpuMaterialUniform struct {
	BaseColor [4]float32
}

// prepareAssetsSystem uploads meshes and materials referenced by scene
// entities. Assets not yet in the AssetServer stay pending; the queue
// system skips them silently until they appear.
func prepareAssetsSystem(cmd *Commands, server *AssetServer, gpuAssets *GpuAssets, pipeline *VoxelPipeline, gpu *GpuState) {
	if gpuAssets.whiteTexture == nil {
		gpuAssets.whiteTexture = createTextureFromAsset(&TextureAsset{
			texels: []uint8{255, 255, 255, 255},
			width:  1,
			height: 1,
		}, gpu)
	}

	MakeQuery2[Mesh, Material](cmd).Map(func(eid EntityId, mesh *Mesh, material *Material) bool {
		if _, uploaded := gpuAssets.meshes[mesh.AssetId]; !uploaded {
			if asset, ok := server.mesh(mesh.AssetId); ok {
				vertexBuf, indexBuf := createVertexIndexBuffers(asset.vertices, asset.indices, gpu.device)
				gpuAssets.meshes[mesh.AssetId] = &GpuMesh{
					vertexBuf:  vertexBuf,
					indexBuf:   indexBuf,
					indexCount: uint32(len(asset.indices)),
					version:    asset.version,
				}
			}
		}

		if _, uploaded := gpuAssets.materials[material.AssetId]; !uploaded {
			if asset, ok := server.material(material.AssetId); ok {
				gpuAssets.materials[material.AssetId] = uploadMaterial(&asset, server, gpuAssets, pipeline, gpu)
			}
		}
		return true
	})
}

func uploadMaterial(asset *MaterialAsset, server *AssetServer, gpuAssets *GpuAssets, pipeline *VoxelPipeline, gpu *GpuState) *GpuMaterial {
	uniform := GpuMaterialUniform{BaseColor: [4]float32(asset.baseColor)}
	uniformBuf := createBuffer("Material Uniform", uniform, gpu, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)

	textureView := gpuAssets.whiteTexture
	if asset.texture != "" {
		if txAsset, ok := server.texture(asset.texture); ok {
			textureView = createTextureFromAsset(&txAsset, gpu)
		}
	}

	bindGroup, err := gpu.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Voxel Material Bind Group",
		Layout: pipeline.materialLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: uniformBuf, Size: wgpu.WholeSize},
			{Binding: 1, TextureView: textureView, Size: wgpu.WholeSize},
			{Binding: 2, Sampler: pipeline.defaultSampler, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		panic(err)
	}

	return &GpuMaterial{
		uniformBuf: uniformBuf,
		bindGroup:  bindGroup,
		version:    asset.version,
	}
}

// modelOffsetArena hands out dynamic offsets into the frame's model
// uniform buffer. Overflow panics: dropping items mid-frame would
// voxelize from fewer than three directions.
type modelOffsetArena struct {
	next uint32
}

func (a *modelOffsetArena) alloc() uint32 {
	if a.next >= maxDrawItems {
		panic(fmt.Sprintf("draw item capacity %d exceeded", maxDrawItems))
	}
	offset := a.next * uniformStride
	a.next++
	return offset
}

// queueVoxelMeshesSystem fills the per-view draw queues from the culled
// visible sets and writes the per-item model uniforms.
func queueVoxelMeshesSystem(cmd *Commands, cfg *GiConfig, server *AssetServer, gpuAssets *GpuAssets,
	phase *VoxelPhase, meta *VolumeMeta, gpu *GpuState) {
	for view := range phase.Items {
		delete(phase.Items, view)
	}
	if !cfg.Enabled {
		return
	}

	var arena modelOffsetArena

	MakeQuery2[VolumeView, VisibleEntities](cmd).Map(
		func(viewId EntityId, view *VolumeView, visible *VisibleEntities) bool {
			for _, eid := range visible.Entities {
				mesh, material, transform, ok := drawableComponents(cmd, eid)
				if !ok {
					continue
				}

				// asset not yet GPU-resident: expected, retry next frame
				if _, ready := gpuAssets.meshes[mesh.AssetId]; !ready {
					continue
				}
				if _, ready := gpuAssets.materials[material.AssetId]; !ready {
					continue
				}

				materialAsset, ok := server.material(material.AssetId)
				if !ok {
					continue
				}

				offset := arena.alloc()

				model := GpuModel{Model: matrixToArray(buildModelMatrix(transform))}
				mustWriteBuffer(gpu, meta.modelUniforms, uint64(offset), toBufferBytes(model))

				phase.Items[viewId] = append(phase.Items[viewId], VoxelPhaseItem{
					Entity:      eid,
					Mesh:        mesh.AssetId,
					Material:    material.AssetId,
					Kind:        materialAsset.kind,
					ModelOffset: offset,
					Distance:    0,
				})
			}
			return true
		})
}

func drawableComponents(cmd *Commands, eid EntityId) (*Mesh, *Material, *TransformComponent, bool) {
	var mesh *Mesh
	var material *Material
	var transform *TransformComponent

	for _, comp := range cmd.GetAllComponents(eid) {
		switch c := comp.(type) {
		case Mesh:
			m := c
			mesh = &m
		case Material:
			m := c
			material = &m
		case TransformComponent:
			t := c
			transform = &t
		}
	}

	if mesh == nil || material == nil || transform == nil {
		return nil, nil, nil, false
	}
	return mesh, material, transform, true
}

// drawVoxelMesh is the draw function of the standard opaque material.
func drawVoxelMesh(pass *wgpu.RenderPassEncoder, item VoxelPhaseItem, ctx *drawContext) bool {
	gpuMesh, ok := ctx.assets.meshes[item.Mesh]
	if !ok {
		return false
	}
	gpuMaterial, ok := ctx.assets.materials[item.Material]
	if !ok {
		return false
	}

	pass.SetBindGroup(bindGroupMaterial, gpuMaterial.bindGroup, nil)
	pass.SetVertexBuffer(0, gpuMesh.vertexBuf, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(gpuMesh.indexBuf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(gpuMesh.indexCount, 1, 0, 0, 0)
	return true
}
