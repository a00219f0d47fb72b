package loadtests

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vulkan-loadtests/engine/assets"
	"github.com/spaghettifunk/vulkan-loadtests/engine/core"
	"github.com/spaghettifunk/vulkan-loadtests/engine/platform"
	"github.com/spaghettifunk/vulkan-loadtests/engine/renderer/vulkan"
)

// App wires the window, the renderer and one sample into a frame loop.
type App struct {
	config   *Config
	platform *platform.Platform
	renderer *vulkan.VulkanRenderer
	assets   *assets.AssetManager

	sample Sample
	state  *SampleState

	clock *core.Clock

	running bool
}

func NewApp(config *Config) (*App, error) {
	p, err := platform.New()
	if err != nil {
		return nil, err
	}

	assetManager, err := assets.NewAssetManager()
	if err != nil {
		return nil, err
	}

	return &App{
		config:   config,
		platform: p,
		renderer: vulkan.New(p, config.Vulkan.Validation),
		assets:   assetManager,
		clock:    core.NewClock(),
	}, nil
}

// Initialize brings up the window, the Vulkan backend and the configured
// sample.
func (app *App) Initialize() error {
	if err := app.platform.Startup(app.config.Window.Title,
		app.config.Window.X, app.config.Window.Y,
		app.config.Window.Width, app.config.Window.Height); err != nil {
		return err
	}

	app.platform.OnResize = func(width, height uint32) {
		app.renderer.Resized(width, height)
	}

	if err := app.renderer.Initialize(app.config.Window.Title,
		app.config.Window.Width, app.config.Window.Height); err != nil {
		return err
	}

	if err := app.assets.Initialize(app.config.Assets.Dir); err != nil {
		return err
	}

	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	app.state = NewSampleState(app.config.Sample.Name, app.config.Sample.Texture, app.assets)
	sample, err := New(app.config.Sample.Name, app.state)
	if err != nil {
		return err
	}
	app.sample = sample

	if err := app.sample.Prepare(app.renderer.Context()); err != nil {
		return fmt.Errorf("sample %s failed to prepare: %w", app.config.Sample.Name, err)
	}

	core.LogInfo("[%s] sample %s running", app.state.RunID, app.state.Name)
	return nil
}

// Run drives the frame loop until the window closes or Stop is called.
func (app *App) Run() error {
	app.running = true
	app.clock.Start()
	app.clock.Update()
	lastTime := app.clock.Elapsed()

	for app.running && app.platform.PumpMessages() {
		app.clock.Update()
		now := app.clock.Elapsed()
		delta := now - lastTime
		lastTime = now

		// Asset edits are applied at frame boundaries only.
		if app.drainAssetChanges() {
			if err := app.reloadSample(); err != nil {
				return err
			}
		}

		if err := app.sample.Run(delta); err != nil {
			return err
		}

		if err := app.renderer.DrawFrame(); err != nil {
			if err == core.ErrSwapchainBooting {
				context := app.renderer.Context()
				if err := app.sample.Resize(context.FramebufferWidth, context.FramebufferHeight); err != nil {
					return err
				}
				continue
			}
			return err
		}

		core.MetricsUpdate(delta)
	}
	app.clock.Stop()

	fps, frameTime := core.MetricsFrame()
	core.LogInfo("[%s] finished: %.1f fps, %.2f ms/frame", app.state.RunID, fps, frameTime)
	return nil
}

// Stop asks the frame loop to exit after the current frame.
func (app *App) Stop() {
	app.running = false
}

func (app *App) Shutdown() error {
	if app.sample != nil {
		app.sample.Cleanup()
		app.sample = nil
	}
	if err := app.assets.Shutdown(); err != nil {
		core.LogWarn("asset manager shutdown: %s", err)
	}
	if err := app.renderer.Shutdown(); err != nil {
		return err
	}
	return app.platform.Shutdown()
}

// drainAssetChanges reports whether any asset the sample depends on
// changed since the last frame.
func (app *App) drainAssetChanges() bool {
	relevant := false
	for {
		select {
		case path, ok := <-app.assets.Changes():
			if !ok {
				return relevant
			}
			if app.isSampleAsset(path) {
				core.LogInfo("[%s] asset changed: %s", app.state.RunID, path)
				relevant = true
			}
		default:
			return relevant
		}
	}
}

func (app *App) isSampleAsset(path string) bool {
	return strings.HasSuffix(path, ".ktx") || strings.HasSuffix(path, ".spv")
}

// reloadSample tears the sample down and prepares it again so edited
// textures and shaders take effect without restarting.
func (app *App) reloadSample() error {
	context := app.renderer.Context()
	vk.DeviceWaitIdle(context.Device.LogicalDevice)

	app.sample.Cleanup()
	if err := app.sample.Prepare(context); err != nil {
		return fmt.Errorf("sample %s failed to reload: %w", app.state.Name, err)
	}
	core.LogInfo("[%s] sample reloaded", app.state.RunID)
	return nil
}
