package loadtests

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vulkan-loadtests/engine/assets"
	"github.com/spaghettifunk/vulkan-loadtests/engine/ktx"
	m "github.com/spaghettifunk/vulkan-loadtests/engine/math"
	"github.com/spaghettifunk/vulkan-loadtests/engine/renderer/vulkan"
)

func TestUniformBlockSizes(t *testing.T) {
	assert.Equal(t, matricesSize, binary.Size(uboMatrices{}))
	assert.Equal(t, instanceSize, binary.Size(uboInstanceData{}))
	assert.Equal(t, vertexStride, binary.Size(m.Vertex2D{}))
}

func TestComputeInstanceDataFillsUpToCap(t *testing.T) {
	instances := computeInstanceData(3, 8)
	require.Len(t, instances, 8)

	center := (3 * float32(instanceGap)) / 2
	for i := 0; i < 3; i++ {
		model := instances[i].Model
		// Translation lands in the last column.
		assert.InDelta(t, 0, model.Data[12], 1e-6)
		assert.InDelta(t, float64(float32(i)*instanceGap-center), float64(model.Data[13]), 1e-5)
		assert.InDelta(t, 0, model.Data[14], 1e-6)

		// The 60 degree tilt about X shows up in the rotation block.
		assert.InDelta(t, 0.5, float64(model.Data[5]), 1e-5)
		assert.InDelta(t, math.Sqrt(3)/2, float64(model.Data[6]), 1e-5)

		assert.Equal(t, float32(i), instances[i].ArrayIndex.X)
	}

	// Slices past the layer count stay zeroed.
	for i := 3; i < 8; i++ {
		assert.Equal(t, uboInstanceData{}, instances[i])
	}
}

func TestComputeInstanceDataClampsToCap(t *testing.T) {
	instances := computeInstanceData(16, 8)
	require.Len(t, instances, 8)

	// All cap entries populated, centered on the capped count.
	center := (8 * float32(instanceGap)) / 2
	for i := 0; i < 8; i++ {
		assert.InDelta(t, float64(float32(i)*instanceGap-center), float64(instances[i].Model.Data[13]), 1e-5)
		assert.Equal(t, float32(i), instances[i].ArrayIndex.X)
	}
}

func TestComputeMatricesProjection(t *testing.T) {
	state := NewSampleState("texturearray", "t.ktx", nil)
	matrices := computeMatrices(800, 600, state)

	aspect := 800.0 / 600.0
	halfTan := math.Tan(math.Pi / 6) // half of 60 degrees
	near, far := 0.001, 256.0

	p := matrices.Projection
	assert.InDelta(t, 1/(aspect*halfTan), float64(p.Data[0]), 1e-5)
	assert.InDelta(t, 1/halfTan, float64(p.Data[5]), 1e-5)
	assert.InDelta(t, -(far+near)/(far-near), float64(p.Data[10]), 1e-5)
	assert.InDelta(t, -1, float64(p.Data[11]), 1e-6)
	assert.InDelta(t, -(2*far*near)/(far-near), float64(p.Data[14]), 1e-5)
}

func TestComputeMatricesViewTranslation(t *testing.T) {
	state := NewSampleState("texturearray", "t.ktx", nil)

	// The rotations never touch the translation column: the camera sits
	// one unit below center at zoom distance.
	view := computeMatrices(800, 600, state).View
	assert.InDelta(t, 0, float64(view.Data[12]), 1e-5)
	assert.InDelta(t, -1, float64(view.Data[13]), 1e-5)
	assert.InDelta(t, float64(state.Zoom), float64(view.Data[14]), 1e-5)
}

func TestComputeMatricesIdempotent(t *testing.T) {
	state := NewSampleState("texturearray", "t.ktx", nil)

	// Resizing to the same dimensions twice must yield bit-identical
	// matrices.
	first := computeMatrices(800, 600, state)
	second := computeMatrices(800, 600, state)
	assert.Equal(t, first, second)
}

func TestComputeMatricesViewWithoutRotation(t *testing.T) {
	state := NewSampleState("texturearray", "t.ktx", nil)
	state.Rotation = m.NewVec3Zero()
	state.Zoom = -7

	view := computeMatrices(640, 480, state).View
	expected := m.NewMat4Translation(m.NewVec3(0, -1, -7))
	for i := range expected.Data {
		assert.InDelta(t, float64(expected.Data[i]), float64(view.Data[i]), 1e-6, "element %d", i)
	}
}

func TestQuadGeometry(t *testing.T) {
	vertices := quadVertices()
	require.Len(t, vertices, 4)

	for _, v := range vertices {
		assert.Equal(t, float32(0), v.Position.Z)
		assert.InDelta(t, quadDim, math.Abs(float64(v.Position.X)), 1e-6)
		assert.InDelta(t, quadDim, math.Abs(float64(v.Position.Y)), 1e-6)
	}

	// Texcoords map corners of the image to corners of the quad.
	assert.Equal(t, m.NewVec2(1, 1), vertices[0].Texcoord)
	assert.Equal(t, m.NewVec2(0, 0), vertices[2].Texcoord)
}

func TestRegistryKnowsTextureArray(t *testing.T) {
	assert.Contains(t, SampleNames(), "texturearray")

	state := NewSampleState("texturearray", "textures/test.ktx", nil)
	sample, err := New("texturearray", state)
	require.NoError(t, err)
	require.NotNil(t, sample)

	_, err = New("does-not-exist", state)
	assert.Error(t, err)
}

func TestNewTextureArrayRequiresTexture(t *testing.T) {
	state := NewSampleState("texturearray", "", nil)
	_, err := NewTextureArray(state)
	assert.Error(t, err)
}

// newTestAssets stands up an asset manager over a temp directory holding
// the given KTX container.
func newTestAssets(t *testing.T, texture *ktx.Texture, name string) *assets.AssetManager {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "textures"), 0o755))
	require.NoError(t, texture.WriteNamedFile(filepath.Join(root, "textures", name)))

	manager, err := assets.NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, manager.Initialize(root))
	t.Cleanup(func() { manager.Shutdown() })
	return manager
}

func TestPrepareFailureReleasesResources(t *testing.T) {
	level := make([]byte, 2*2*4*2)
	texture := ktx.NewRGBA8Texture(2, 2, 2, [][]byte{level})
	// A format the uploader does not support fails the load before any
	// device resource exists.
	texture.GLInternalFormat = 0x8C41

	manager := newTestAssets(t, texture, "bad.ktx")
	state := NewSampleState("texturearray", filepath.Join("textures", "bad.ktx"), manager)
	sample, err := NewTextureArray(state)
	require.NoError(t, err)

	err = sample.Prepare(&vulkan.VulkanContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ktx.ErrUnsupportedTextureType)

	// The failed run holds on to nothing.
	ta := sample.(*TextureArray)
	assert.Nil(t, ta.texture)
	assert.Nil(t, ta.vertexBuffer)
	assert.Nil(t, ta.uniformBuffer)
	assert.Nil(t, ta.pipeline)
}

func TestPrepareRejectsNonArrayTexture(t *testing.T) {
	level := make([]byte, 2*2*4)
	texture := ktx.NewRGBA8Texture(2, 2, 0, [][]byte{level})

	manager := newTestAssets(t, texture, "flat.ktx")
	state := NewSampleState("texturearray", filepath.Join("textures", "flat.ktx"), manager)
	sample, err := NewTextureArray(state)
	require.NoError(t, err)

	err = sample.Prepare(&vulkan.VulkanContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flat.ktx")
	assert.Nil(t, sample.(*TextureArray).texture)
}

func TestInstanceCapAndDrawCount(t *testing.T) {
	state := NewSampleState("texturearray", "textures/test.ktx", nil)
	sample, err := NewTextureArray(state)
	require.NoError(t, err)

	ta := sample.(*TextureArray)
	assert.Equal(t, uint32(layersDeclaredInShader), ta.InstanceCap())
	// No texture uploaded yet, so nothing would be drawn.
	assert.Equal(t, uint32(0), ta.DrawInstanceCount())
}
