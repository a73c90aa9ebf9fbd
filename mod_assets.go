package voxelgi

import (
	"image"
	"image/png"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

type AssetId string

// MaterialKind selects the draw function used for meshes carrying the
// material. Kinds are registered, not subclassed.
type MaterialKind string

const MaterialKindStandard MaterialKind = "standard"

type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	Uv       [2]float32
}

type Mesh struct {
	AssetId AssetId
}

type Material struct {
	AssetId AssetId
}

type MeshAsset struct {
	version  uint
	vertices []Vertex
	indices  []uint32
}

type MaterialAsset struct {
	version   uint
	kind      MaterialKind
	baseColor mgl32.Vec4
	texture   AssetId // empty when untextured
}

type TextureAsset struct {
	version uint
	texels  []uint8 // RGBA8
	width   uint32
	height  uint32
}

type AssetServer struct {
	meshes    map[AssetId]MeshAsset
	materials map[AssetId]MaterialAsset
	textures  map[AssetId]TextureAsset
}

type AssetServerModule struct{}

func (AssetServerModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&AssetServer{
		meshes:    make(map[AssetId]MeshAsset),
		materials: make(map[AssetId]MaterialAsset),
		textures:  make(map[AssetId]TextureAsset),
	})
}

func (server *AssetServer) LoadMesh(vertices []Vertex, indices []uint32) Mesh {
	id := makeAssetId()

	server.meshes[id] = MeshAsset{
		version:  0,
		vertices: vertices,
		indices:  indices,
	}

	return Mesh{AssetId: id}
}

func (server *AssetServer) LoadMaterial(kind MaterialKind, baseColor mgl32.Vec4, texture AssetId) Material {
	id := makeAssetId()

	server.materials[id] = MaterialAsset{
		version:   0,
		kind:      kind,
		baseColor: baseColor,
		texture:   texture,
	}

	return Material{AssetId: id}
}

func (server *AssetServer) CreateTexture(texels []uint8, texWidth uint32, texHeight uint32) AssetId {
	id := makeAssetId()

	server.textures[id] = TextureAsset{
		version: 0,
		texels:  texels,
		width:   texWidth,
		height:  texHeight,
	}

	return id
}

// LoadTexture decodes a png file into RGBA8 texels, optionally scaling to
// maxEdge when the source is larger. Pass 0 to keep the source size.
func (server *AssetServer) LoadTexture(filename string, maxEdge int) (AssetId, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return "", err
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxEdge > 0 && (w > maxEdge || h > maxEdge) {
		w, h = maxEdge, maxEdge
	}

	rgbaImg := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(rgbaImg, rgbaImg.Bounds(), img, bounds, xdraw.Src, nil)

	id := makeAssetId()
	server.textures[id] = TextureAsset{
		version: 0,
		texels:  rgbaImg.Pix,
		width:   uint32(w),
		height:  uint32(h),
	}

	return id, nil
}

func (server *AssetServer) mesh(id AssetId) (MeshAsset, bool) {
	asset, ok := server.meshes[id]
	return asset, ok
}

func (server *AssetServer) material(id AssetId) (MaterialAsset, bool) {
	asset, ok := server.materials[id]
	return asset, ok
}

func (server *AssetServer) texture(id AssetId) (TextureAsset, bool) {
	asset, ok := server.textures[id]
	return asset, ok
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}
