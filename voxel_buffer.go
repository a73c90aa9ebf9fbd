package voxelgi

import (
	"slices"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Uniform structs mirror the WGSL declarations, padding included.

type GpuVolume struct {
	Min  [3]float32
	Pad0 float32
	Max  [3]float32
	Pad1 float32
}

type GpuVolumeView struct {
	ViewProj [16]float32
}

type GpuModel struct {
	Model [16]float32
}

// wgpu guarantees dynamic uniform offsets align to at least this.
const uniformStride = 256

const maxVolumes = 4
const maxVolumeViews = maxVolumes * 3
const maxDrawItems = 1024

// VolumeBindings holds the persistent GPU resources of one volume. Bind
// groups over them are rebuilt every frame; these objects live as long as
// the volume entity does.
type VolumeBindings struct {
	voxelTexture *wgpu.Texture
	voxelView    *wgpu.TextureView

	accumBuffer *wgpu.Buffer

	anisoTextures [6]*wgpu.Texture
	anisoViews    [6]*wgpu.TextureView   // whole chain, for downstream sampling
	anisoMipViews [6][]*wgpu.TextureView // one view per level

	colorAttachmentTexture *wgpu.Texture
	colorAttachment        *wgpu.TextureView // dummy raster target for voxelization
}

// VolumeMeta is the arena of per-volume GPU state, keyed by volume
// entity id, plus the shared dynamic uniform buffers.
type VolumeMeta struct {
	volumeUniforms *wgpu.Buffer
	viewUniforms   *wgpu.Buffer
	modelUniforms  *wgpu.Buffer

	volumeOffsets map[EntityId]uint32     // volume entity -> offset into volumeUniforms
	viewOffsets   map[EntityId]uint32     // view entity -> offset into viewUniforms
	volumeViews   map[EntityId][]EntityId // volume entity -> its capture view entities

	bindings map[EntityId]*VolumeBindings

	// uniform slots freed by dropped volumes, reused before growing
	freeVolumeSlots []uint32
	freeViewSlots   []uint32
	nextVolumeSlot  uint32
	nextViewSlot    uint32
}

// VoxelTextureView exposes the resolved radiance/opacity texture for
// downstream cone-tracing samplers.
func (b *VolumeBindings) VoxelTextureView() *wgpu.TextureView {
	return b.voxelView
}

// AnisoChainView exposes the full mip chain of one direction, indexed
// +X, -X, +Y, -Y, +Z, -Z. Level clamping is the sampler's job.
func (b *VolumeBindings) AnisoChainView(direction int) *wgpu.TextureView {
	return b.anisoViews[direction]
}

// Bindings returns the GPU resources of a registered volume, if any.
func (meta *VolumeMeta) Bindings(volume EntityId) (*VolumeBindings, bool) {
	b, ok := meta.bindings[volume]
	return b, ok
}

func newVolumeMeta() *VolumeMeta {
	return &VolumeMeta{
		volumeOffsets: make(map[EntityId]uint32),
		viewOffsets:   make(map[EntityId]uint32),
		volumeViews:   make(map[EntityId][]EntityId),
		bindings:      make(map[EntityId]*VolumeBindings),
	}
}

func (meta *VolumeMeta) allocVolumeOffset() uint32 {
	if n := len(meta.freeVolumeSlots); n > 0 {
		slot := meta.freeVolumeSlots[n-1]
		meta.freeVolumeSlots = meta.freeVolumeSlots[:n-1]
		return slot * uniformStride
	}
	if meta.nextVolumeSlot >= maxVolumes {
		panic("volume capacity exceeded")
	}
	offset := meta.nextVolumeSlot * uniformStride
	meta.nextVolumeSlot++
	return offset
}

func (meta *VolumeMeta) allocViewOffset() uint32 {
	if n := len(meta.freeViewSlots); n > 0 {
		slot := meta.freeViewSlots[n-1]
		meta.freeViewSlots = meta.freeViewSlots[:n-1]
		return slot * uniformStride
	}
	if meta.nextViewSlot >= maxVolumeViews {
		panic("volume view capacity exceeded")
	}
	offset := meta.nextViewSlot * uniformStride
	meta.nextViewSlot++
	return offset
}

// releaseVolume tears down everything a volume registered: its GPU
// resources, its uniform slots, and its three capture view entities.
func (meta *VolumeMeta) releaseVolume(cmd *Commands, eid EntityId) {
	if b := meta.bindings[eid]; b != nil {
		releaseVolumeBindings(b)
	}
	delete(meta.bindings, eid)

	if offset, ok := meta.volumeOffsets[eid]; ok {
		meta.freeVolumeSlots = append(meta.freeVolumeSlots, offset/uniformStride)
		delete(meta.volumeOffsets, eid)
	}

	for _, viewId := range meta.volumeViews[eid] {
		if offset, ok := meta.viewOffsets[viewId]; ok {
			meta.freeViewSlots = append(meta.freeViewSlots, offset/uniformStride)
			delete(meta.viewOffsets, viewId)
		}
		cmd.RemoveEntity(viewId)
	}
	delete(meta.volumeViews, eid)
}

func (meta *VolumeMeta) ensureUniformBuffers(gpu *GpuState) {
	if meta.volumeUniforms != nil {
		return
	}
	meta.volumeUniforms = createEmptyBuffer("Volume Uniforms", maxVolumes*uniformStride, gpu,
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	meta.viewUniforms = createEmptyBuffer("Volume View Uniforms", maxVolumeViews*uniformStride, gpu,
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	meta.modelUniforms = createEmptyBuffer("Voxel Model Uniforms", maxDrawItems*uniformStride, gpu,
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
}

// anisoExtent is the level-0 size of each directional mip texture:
// half resolution across the capture plane, full resolution in depth.
func anisoExtent(voxelSize uint32) (w, h, d uint32) {
	return voxelSize / 2, voxelSize / 2, voxelSize
}

// createVolumeBindings allocates the full GPU resource set for one
// volume: the resolved voxel texture, the atomic accumulation buffer, the
// six anisotropic mip chains and the dummy color target.
func createVolumeBindings(cfg *GiConfig, gpu *GpuState) *VolumeBindings {
	voxelSize := cfg.VoxelSize

	b := &VolumeBindings{}

	b.voxelTexture = create3DTexture("Voxel Texture",
		voxelSize, voxelSize, voxelSize, 1,
		wgpu.TextureFormatRGBA16Float,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageStorageBinding,
		gpu)
	b.voxelView = createMipView(b.voxelTexture, 0)

	accumBytes := uint64(voxelSize) * uint64(voxelSize) * uint64(voxelSize) * accumCellWords * 4
	b.accumBuffer = createEmptyBuffer("Voxel Accumulation Buffer", accumBytes, gpu,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)

	anisoW, anisoH, anisoD := anisoExtent(voxelSize)
	for dir := 0; dir < 6; dir++ {
		tex := create3DTexture("Anisotropic Voxel Mipmap",
			anisoW, anisoH, anisoD, cfg.MipLevelCount,
			wgpu.TextureFormatRGBA16Float,
			wgpu.TextureUsageTextureBinding|wgpu.TextureUsageStorageBinding,
			gpu)
		b.anisoTextures[dir] = tex

		chainView, err := tex.CreateView(&wgpu.TextureViewDescriptor{
			Dimension:       wgpu.TextureViewDimension3D,
			BaseMipLevel:    0,
			MipLevelCount:   cfg.MipLevelCount,
			BaseArrayLayer:  0,
			ArrayLayerCount: 1,
		})
		if err != nil {
			panic(err)
		}
		b.anisoViews[dir] = chainView

		views := make([]*wgpu.TextureView, cfg.MipLevelCount)
		for level := uint32(0); level < cfg.MipLevelCount; level++ {
			views[level] = createMipView(tex, level)
		}
		b.anisoMipViews[dir] = views
	}

	b.colorAttachmentTexture = create2DTexture("Voxelization Color Attachment",
		voxelSize, voxelSize,
		wgpu.TextureFormatRGBA8Unorm,
		wgpu.TextureUsageRenderAttachment,
		gpu)
	attachment, err := b.colorAttachmentTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}
	b.colorAttachment = attachment

	return b
}

// prepareVolumesSystem registers GPU state for volumes seen for the first
// time and refreshes the volume and view uniforms every frame.
func prepareVolumesSystem(cmd *Commands, cfg *GiConfig, gpu *GpuState, meta *VolumeMeta) {
	if !cfg.Enabled {
		return
	}
	meta.ensureUniformBuffers(gpu)

	MakeQuery1[Volume](cmd).Map(func(eid EntityId, volume *Volume) bool {
		if _, ok := meta.bindings[eid]; !ok {
			meta.bindings[eid] = createVolumeBindings(cfg, gpu)
			meta.volumeOffsets[eid] = meta.allocVolumeOffset()
		}
		meta.volumeViews[eid] = slices.Clone(volume.Views)

		uniform := GpuVolume{
			Min: [3]float32(volume.Min),
			Max: [3]float32(volume.Max),
		}
		mustWriteBuffer(gpu, meta.volumeUniforms, uint64(meta.volumeOffsets[eid]), toBufferBytes(uniform))
		return true
	})

	MakeQuery3[VolumeView, TransformComponent, OrthoProjection](cmd).Map(
		func(eid EntityId, view *VolumeView, transform *TransformComponent, projection *OrthoProjection) bool {
			if _, ok := meta.viewOffsets[eid]; !ok {
				meta.viewOffsets[eid] = meta.allocViewOffset()
			}

			viewMatrix := buildModelMatrix(transform).Inv()
			viewProj := projection.Matrix().Mul4(viewMatrix)
			uniform := GpuVolumeView{ViewProj: matrixToArray(viewProj)}
			mustWriteBuffer(gpu, meta.viewUniforms, uint64(meta.viewOffsets[eid]), toBufferBytes(uniform))
			return true
		})
}

// dropVolumeBindingsSystem tears down volumes whose entity is gone:
// GPU resources, uniform slots and the orphaned capture view entities.
func dropVolumeBindingsSystem(cmd *Commands, meta *VolumeMeta) {
	for eid := range meta.bindings {
		if len(cmd.GetAllComponents(eid)) == 0 {
			meta.releaseVolume(cmd, eid)
		}
	}
}

func releaseVolumeBindings(b *VolumeBindings) {
	b.voxelView.Release()
	b.voxelTexture.Release()
	b.accumBuffer.Release()
	for dir := 0; dir < 6; dir++ {
		for _, view := range b.anisoMipViews[dir] {
			view.Release()
		}
		b.anisoViews[dir].Release()
		b.anisoTextures[dir].Release()
	}
	b.colorAttachment.Release()
	b.colorAttachmentTexture.Release()
}

func mustWriteBuffer(gpu *GpuState, buffer *wgpu.Buffer, offset uint64, data []byte) {
	if err := gpu.queue.WriteBuffer(buffer, offset, data); err != nil {
		panic(err)
	}
}

func matrixToArray(m mgl32.Mat4) [16]float32 {
	var out [16]float32
	copy(out[:], m[:])
	return out
}
