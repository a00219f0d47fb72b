package loadtests

import (
	"errors"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/vulkan-loadtests/engine/core"
)

// Config drives the harness: window shape, asset location and which
// sample to run.
type Config struct {
	Window WindowConfig `toml:"window"`
	Assets AssetsConfig `toml:"assets"`
	Sample SampleConfig `toml:"sample"`
	Log    LogConfig    `toml:"log"`
	Vulkan VulkanConfig `toml:"vulkan"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	X      uint32 `toml:"x"`
	Y      uint32 `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type AssetsConfig struct {
	Dir string `toml:"dir"`
}

type SampleConfig struct {
	Name string `toml:"name"`
	// Texture is the container file the sample loads, relative to the
	// asset directory.
	Texture string `toml:"texture"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type VulkanConfig struct {
	Validation bool `toml:"validation"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Vulkan LoadTests",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Assets: AssetsConfig{
			Dir: "assets",
		},
		Sample: SampleConfig{
			Name:    "texturearray",
			Texture: "textures/texturearray_rgba.ktx",
		},
		Log: LogConfig{
			Level: "info",
		},
		Vulkan: VulkanConfig{
			Validation: false,
		},
	}
}

// LoadConfig reads a TOML config file, falling back to defaults when the
// file does not exist. A present but malformed file is an error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			core.LogInfo("config file %s not found, using defaults", path)
			return config, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("unable to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window dimensions must be non-zero (got %dx%d)", c.Window.Width, c.Window.Height)
	}
	if c.Sample.Name == "" {
		return fmt.Errorf("no sample name configured")
	}
	return nil
}

// LogLevel translates the configured level name for the core logger.
func (c *Config) LogLevel() core.LogLevel {
	switch c.Log.Level {
	case "debug":
		return core.DebugLevel
	case "warn":
		return core.WarnLevel
	case "error":
		return core.ErrorLevel
	default:
		return core.InfoLevel
	}
}
