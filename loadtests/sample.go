package loadtests

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/spaghettifunk/vulkan-loadtests/engine/assets"
	m "github.com/spaghettifunk/vulkan-loadtests/engine/math"
	"github.com/spaghettifunk/vulkan-loadtests/engine/renderer/vulkan"
)

// Sample is one self-contained load test. The harness owns the window and
// the renderer; a sample owns everything it creates during Prepare and
// must release it in Cleanup.
type Sample interface {
	// Prepare builds all GPU resources and records the draw command
	// buffers. Called once before the frame loop and again after a
	// hot reload.
	Prepare(context *vulkan.VulkanContext) error
	// Resize refreshes size-dependent state and re-records the draw
	// command buffers after a swapchain rebuild.
	Resize(width, height uint32) error
	// Run advances per-frame state. deltaTime is in seconds.
	Run(deltaTime float64) error
	// Cleanup destroys everything Prepare created. Safe to call on a
	// partially prepared sample.
	Cleanup()
}

// SampleState carries the harness-provided context a sample starts from:
// camera placement, asset resolution and the configured texture.
type SampleState struct {
	// RunID tags log lines of one sample run.
	RunID uuid.UUID
	Name  string

	Assets *assets.AssetManager
	// TextureFile is resolved against the asset manager root.
	TextureFile string

	CameraPosition m.Vec3
	// Rotation in degrees around X, Y, Z.
	Rotation m.Vec3
	Zoom     float32
}

// NewSampleState seeds the default camera used by the samples.
func NewSampleState(name, textureFile string, assetManager *assets.AssetManager) *SampleState {
	return &SampleState{
		RunID:          uuid.New(),
		Name:           name,
		Assets:         assetManager,
		TextureFile:    textureFile,
		CameraPosition: m.NewVec3Zero(),
		Rotation:       m.NewVec3(-15, 35, 0),
		Zoom:           -15,
	}
}

// CreateFunc builds a sample from its starting state.
type CreateFunc func(state *SampleState) (Sample, error)

var registry = map[string]CreateFunc{}

// Register makes a sample available under the given name. Samples call
// this from init.
func Register(name string, create CreateFunc) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("loadtests: sample %q registered twice", name))
	}
	registry[name] = create
}

// New instantiates a registered sample by name.
func New(name string, state *SampleState) (Sample, error) {
	create, exists := registry[name]
	if !exists {
		return nil, fmt.Errorf("unknown sample %q (available: %v)", name, SampleNames())
	}
	return create(state)
}

// SampleNames lists the registered samples in stable order.
func SampleNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
