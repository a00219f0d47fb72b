// Package assets indexes the on-disk asset tree and watches it for
// changes so running samples can hot-reload textures and shaders.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/vulkan-loadtests/engine/core"
)

type AssetType int

const (
	AssetTypeNone AssetType = iota
	AssetTypeTexture
	AssetTypeShader
)

type AssetInfo struct {
	Path     string
	Type     AssetType
	Modified time.Time
}

// AssetManager indexes every asset under a root directory and emits the
// path of any asset that changes on disk. Change events are delivered on
// Changes; the consumer decides when it is safe to act on them.
type AssetManager struct {
	root   string
	assets map[string]AssetInfo

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	changes  chan string
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		fsnotify: fsWatch,
		changes:  make(chan string, 16),
		done:     make(chan struct{}),
	}, nil
}

// Initialize indexes the asset tree rooted at assetsDir and begins
// watching it for modifications.
func (am *AssetManager) Initialize(assetsDir string) error {
	info, err := os.Stat(assetsDir)
	if err != nil {
		return fmt.Errorf("asset directory %s is not readable: %w", assetsDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("asset path %s is not a directory", assetsDir)
	}
	am.root = assetsDir

	if err := am.watchRecursive(assetsDir, false); err != nil {
		return err
	}

	go am.start()
	return nil
}

// Changes delivers the paths of assets modified on disk. The channel is
// buffered; stale events are dropped rather than blocking the watcher.
func (am *AssetManager) Changes() <-chan string {
	return am.changes
}

// Resolve returns the absolute path of a named asset relative to the
// asset root, verifying it exists in the index.
func (am *AssetManager) Resolve(name string) (string, error) {
	path := filepath.Join(am.root, name)

	am.mutex.RLock()
	_, exists := am.assets[path]
	am.mutex.RUnlock()

	if !exists {
		// Fall back to disk: the index only tracks recognized extensions.
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("asset not found: %s", path)
		}
	}
	return path, nil
}

func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	am.isClosed = true
	close(am.done)
	return nil
}

func (am *AssetManager) start() {
	for {
		select {
		case e := <-am.fsnotify.Events:
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					am.watchRecursive(e.Name, false)
				}
				continue
			}

			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if am.indexFile(e.Name) {
					am.notify(e.Name)
				}
			}
			// Can't stat a deleted entry, so drop it from both the index
			// and the watch list.
			if e.Op&fsnotify.Remove != 0 {
				am.removeAsset(e.Name)
				am.fsnotify.Remove(e.Name)
			}

		case e := <-am.fsnotify.Errors:
			if e != nil {
				core.LogError("asset watcher: %s", e.Error())
			}

		case <-am.done:
			am.fsnotify.Close()
			close(am.changes)
			return
		}
	}
}

func (am *AssetManager) notify(path string) {
	select {
	case am.changes <- path:
	default:
		core.LogWarn("asset change dropped, consumer too slow: %s", path)
	}
}

// watchRecursive adds all directories under the given one to the watch
// list and indexes the files it passes.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.indexFile(walkPath)
		return nil
	})
}

func (am *AssetManager) indexFile(path string) bool {
	assetType := determineAssetType(path)
	if assetType == AssetTypeNone {
		return false
	}

	am.mutex.Lock()
	am.assets[path] = AssetInfo{
		Path:     path,
		Type:     assetType,
		Modified: time.Now(),
	}
	am.mutex.Unlock()
	return true
}

func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	delete(am.assets, path)
	am.mutex.Unlock()
}

func determineAssetType(path string) AssetType {
	switch filepath.Ext(path) {
	case ".ktx":
		return AssetTypeTexture
	case ".spv":
		return AssetTypeShader
	default:
		return AssetTypeNone
	}
}
