package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, root string) *AssetManager {
	t.Helper()
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(root))
	t.Cleanup(func() { am.Shutdown() })
	return am
}

func TestDetermineAssetType(t *testing.T) {
	assert.Equal(t, AssetTypeTexture, determineAssetType("textures/array.ktx"))
	assert.Equal(t, AssetTypeShader, determineAssetType("shaders/instancing.vert.spv"))
	assert.Equal(t, AssetTypeNone, determineAssetType("shaders/instancing.vert"))
	assert.Equal(t, AssetTypeNone, determineAssetType("README.md"))
}

func TestInitializeRejectsMissingDirectory(t *testing.T) {
	am, err := NewAssetManager()
	require.NoError(t, err)
	defer am.Shutdown()

	assert.Error(t, am.Initialize(filepath.Join(t.TempDir(), "missing")))
}

func TestInitializeRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	am, err := NewAssetManager()
	require.NoError(t, err)
	defer am.Shutdown()

	assert.Error(t, am.Initialize(path))
}

func TestResolveIndexedAsset(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "textures"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "textures", "array.ktx"), []byte("ktx"), 0o644))

	am := newTestManager(t, root)

	path, err := am.Resolve(filepath.Join("textures", "array.ktx"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "textures", "array.ktx"), path)

	_, err = am.Resolve(filepath.Join("textures", "missing.ktx"))
	assert.Error(t, err)
}

func TestResolveFallsBackToDisk(t *testing.T) {
	root := t.TempDir()
	// A file with an unrecognized extension never enters the index but
	// should still resolve.
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hi"), 0o644))

	am := newTestManager(t, root)

	path, err := am.Resolve("notes.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "notes.txt"), path)
}

func TestChangeNotification(t *testing.T) {
	root := t.TempDir()
	am := newTestManager(t, root)

	target := filepath.Join(root, "texture.ktx")
	require.NoError(t, os.WriteFile(target, []byte("v1"), 0o644))

	select {
	case changed := <-am.Changes():
		assert.Equal(t, target, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification for new asset")
	}

	// The new file is now resolvable through the index.
	_, err := am.Resolve("texture.ktx")
	assert.NoError(t, err)
}

func TestShutdownIsSingleShot(t *testing.T) {
	am, err := NewAssetManager()
	require.NoError(t, err)

	require.NoError(t, am.Shutdown())
	assert.Error(t, am.Shutdown())
}
