package voxelgi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/cogentcore/webgpu/wgpu"
)

func createShaderModule(name string, code string, gpuState *GpuState) *wgpu.ShaderModule {
	shader, err := gpuState.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
	if err != nil {
		panic(err)
	}
	return shader
}

func createVertexIndexBuffers(vertices []Vertex, indices []uint32, device *wgpu.Device) (vertexBuf *wgpu.Buffer, indexBuf *wgpu.Buffer) {
	vertexBuf, err := device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Vertex Buffer",
		Contents: wgpu.ToBytes(vertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		panic(err)
	}
	indexBuf, err = device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Index Buffer",
		Contents: wgpu.ToBytes(indices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		panic(err)
	}
	return vertexBuf, indexBuf
}

func createBuffer(name string, data any, gpuState *GpuState, usage wgpu.BufferUsage) *wgpu.Buffer {
	buffer, err := gpuState.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    name,
		Contents: toBufferBytes(data),
		Usage:    usage,
	})
	if err != nil {
		panic(err)
	}
	return buffer
}

func createEmptyBuffer(name string, size uint64, gpuState *GpuState, usage wgpu.BufferUsage) *wgpu.Buffer {
	buffer, err := gpuState.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: name,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		panic(err)
	}
	return buffer
}

func create3DTexture(name string, width, height, depth, mipLevels uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage, gpuState *GpuState) *wgpu.Texture {
	texture, err := gpuState.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: name,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: depth,
		},
		MipLevelCount: mipLevels,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension3D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		panic(err)
	}
	return texture
}

func create2DTexture(name string, width, height uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage, gpuState *GpuState) *wgpu.Texture {
	texture, err := gpuState.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: name,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		panic(err)
	}
	return texture
}

func createTextureFromAsset(txAsset *TextureAsset, gpuState *GpuState) *wgpu.TextureView {
	textureExtent := wgpu.Extent3D{
		Width:              txAsset.width,
		Height:             txAsset.height,
		DepthOrArrayLayers: 1,
	}
	texture, err := gpuState.device.CreateTexture(&wgpu.TextureDescriptor{
		Size:          textureExtent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	defer texture.Release()

	textureView, err := texture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	err = gpuState.queue.WriteTexture(
		texture.AsImageCopy(),
		txAsset.texels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  txAsset.width * 4,
			RowsPerImage: txAsset.height,
		},
		&textureExtent,
	)
	if err != nil {
		panic(err)
	}
	return textureView
}

func createMipView(texture *wgpu.Texture, level uint32) *wgpu.TextureView {
	view, err := texture.CreateView(&wgpu.TextureViewDescriptor{
		Dimension:       wgpu.TextureViewDimension3D,
		BaseMipLevel:    level,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
	})
	if err != nil {
		panic(err)
	}
	return view
}

// toBufferBytes serializes a uniform struct field by field in declaration
// order, little-endian. Field names carry WGSL alignment via explicit
// padding members in the struct definitions.
func toBufferBytes(data any) []byte {
	val := reflect.ValueOf(data)
	buf := new(bytes.Buffer)
	readUniformsBytes(val, buf)
	return buf.Bytes()
}

func readUniformsBytes(field reflect.Value, buf *bytes.Buffer) {
	switch field.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < field.Len(); i++ {
			elem := field.Index(i)
			if elem.Kind() == reflect.Ptr {
				elem = elem.Elem()
			}
			if elem.Kind() == reflect.Struct {
				readUniformsBytes(elem, buf)
			} else {
				if err := binary.Write(buf, binary.LittleEndian, elem.Interface()); err != nil {
					panic(fmt.Errorf("failed to write slice element: %w", err))
				}
			}
		}

	case reflect.Struct:
		for i := 0; i < field.NumField(); i++ {
			readUniformsBytes(field.Field(i), buf)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Float32:
		if err := binary.Write(buf, binary.LittleEndian, field.Interface()); err != nil {
			panic(fmt.Errorf("failed to write scalar field: %w", err))
		}

	default:
		panic(fmt.Errorf("unsupported uniform type: %v", field))
	}
}
