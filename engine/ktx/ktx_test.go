package ktx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestTexture(t *testing.T, width, height, layers uint32, levels [][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ktx")
	texture := NewRGBA8Texture(width, height, layers, levels)
	require.NoError(t, texture.WriteNamedFile(path))
	return path
}

func solidLevel(width, height, layers uint32, value byte) []byte {
	level := make([]byte, width*height*4*layers)
	for i := range level {
		level[i] = value
	}
	return level
}

func TestRoundTripArrayTexture(t *testing.T) {
	levels := [][]byte{
		solidLevel(4, 4, 3, 0xAA),
		solidLevel(2, 2, 3, 0xBB),
		solidLevel(1, 1, 3, 0xCC),
	}
	path := writeTestTexture(t, 4, 4, 3, levels)

	texture, err := CreateFromNamedFile(path)
	require.NoError(t, err)

	assert.Equal(t, uint32(4), texture.PixelWidth)
	assert.Equal(t, uint32(4), texture.PixelHeight)
	assert.Equal(t, uint32(0), texture.PixelDepth)
	assert.Equal(t, uint32(3), texture.NumberOfArrayElements)
	assert.Equal(t, uint32(1), texture.NumberOfFaces)
	assert.Equal(t, uint32(3), texture.NumberOfMipmapLevels)
	assert.Equal(t, uint32(glRGBA8), texture.GLInternalFormat)

	require.Len(t, texture.Levels, 3)
	assert.Equal(t, levels[0], texture.Levels[0])
	assert.Equal(t, levels[1], texture.Levels[1])
	assert.Equal(t, levels[2], texture.Levels[2])

	assert.Equal(t, uint32(3), texture.LayerCount())
	assert.Equal(t, uint32(3), texture.LevelCount())
}

func TestRoundTripKeyValueData(t *testing.T) {
	texture := NewRGBA8Texture(2, 2, 0, [][]byte{solidLevel(2, 2, 1, 0x11)})
	texture.KeyValueData = map[string]string{
		"KTXorientation": "S=r,T=d",
		"generator":      "ktxpack",
	}

	path := filepath.Join(t.TempDir(), "kv.ktx")
	require.NoError(t, texture.WriteNamedFile(path))

	parsed, err := CreateFromNamedFile(path)
	require.NoError(t, err)
	assert.Equal(t, texture.KeyValueData, parsed.KeyValueData)
}

func TestNonArrayTextureCounts(t *testing.T) {
	path := writeTestTexture(t, 2, 2, 0, [][]byte{solidLevel(2, 2, 1, 0x42)})

	texture, err := CreateFromNamedFile(path)
	require.NoError(t, err)

	assert.Equal(t, uint32(0), texture.NumberOfArrayElements)
	assert.Equal(t, uint32(1), texture.LayerCount())
}

func TestCreateFromNamedFileMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.ktx")
	_, err := CreateFromNamedFile(missing)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileOpenFailed)
	assert.Contains(t, err.Error(), missing)
}

func TestCreateFromNamedFileGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.ktx")
	require.NoError(t, os.WriteFile(path, []byte("this is not a texture at all"), 0o644))

	_, err := CreateFromNamedFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownFileFormat)
	assert.Contains(t, err.Error(), path)
}

func TestCreateFromNamedFileTruncated(t *testing.T) {
	full := writeTestTexture(t, 4, 4, 2, [][]byte{solidLevel(4, 4, 2, 0x33)})
	data, err := os.ReadFile(full)
	require.NoError(t, err)

	truncated := filepath.Join(t.TempDir(), "truncated.ktx")
	require.NoError(t, os.WriteFile(truncated, data[:len(data)-16], 0o644))

	_, err = CreateFromNamedFile(truncated)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedEndOfFile)
}

func TestVkFormatMapping(t *testing.T) {
	texture := NewRGBA8Texture(2, 2, 4, [][]byte{solidLevel(2, 2, 4, 0)})
	assert.NotZero(t, texture.VkFormat())

	texture.GLInternalFormat = 0xDEAD
	assert.Zero(t, texture.VkFormat())
}

func TestWriteNamedFileRejectsEmpty(t *testing.T) {
	texture := NewRGBA8Texture(2, 2, 0, nil)
	err := texture.WriteNamedFile(filepath.Join(t.TempDir(), "empty.ktx"))
	assert.ErrorIs(t, err, ErrFileDataError)
}
