package loadtests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vulkan-loadtests/engine/core"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	defaults := DefaultConfig()
	assert.Equal(t, defaults.Window, config.Window)
	assert.Equal(t, defaults.Sample, config.Sample)
	assert.Equal(t, defaults.Assets, config.Assets)
}

func TestLoadConfigParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loadtests.toml")
	content := `
[window]
title = "Array Test"
width = 640
height = 480

[sample]
name = "texturearray"
texture = "textures/custom.ktx"

[log]
level = "debug"

[vulkan]
validation = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Array Test", config.Window.Title)
	assert.Equal(t, uint32(640), config.Window.Width)
	assert.Equal(t, uint32(480), config.Window.Height)
	assert.Equal(t, "textures/custom.ktx", config.Sample.Texture)
	assert.True(t, config.Vulkan.Validation)
	assert.Equal(t, core.DebugLevel, config.LogLevel())
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loadtests.toml")
	require.NoError(t, os.WriteFile(path, []byte("window = {"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidateRejectsZeroWindow(t *testing.T) {
	config := DefaultConfig()
	config.Window.Width = 0
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.Sample.Name = ""
	assert.Error(t, config.Validate())
}

func TestLogLevelMapping(t *testing.T) {
	config := DefaultConfig()

	config.Log.Level = "warn"
	assert.Equal(t, core.WarnLevel, config.LogLevel())

	config.Log.Level = "error"
	assert.Equal(t, core.ErrorLevel, config.LogLevel())

	// Unknown names fall back to info.
	config.Log.Level = "chatty"
	assert.Equal(t, core.InfoLevel, config.LogLevel())
}
