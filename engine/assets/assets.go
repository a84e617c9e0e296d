package assets

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spectralab/spectra/engine/assets/loaders"
	"github.com/spectralab/spectra/engine/core"
	"github.com/spectralab/spectra/engine/resources"
)

type AssetInfo struct {
	Path       string
	LastLoaded time.Time
}

// AssetManager loads textures and models from the assets root and watches it
// for changes. A change fires EVENT_CODE_ASSET_CHANGED with no payload beyond
// the path; reload policy is the listener's concern.
type AssetManager struct {
	root   string
	images loaders.ImageLoader
	models loaders.ModelLoader

	mutex  sync.RWMutex
	assets map[string]AssetInfo

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewAssetManager(root string) (*AssetManager, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	manager := &AssetManager{
		root:    root,
		assets:  make(map[string]AssetInfo),
		watcher: watcher,
		done:    make(chan struct{}),
	}

	if err := manager.watchRecursive(root); err != nil {
		watcher.Close()
		return nil, err
	}
	go manager.run()
	return manager, nil
}

func (am *AssetManager) Shutdown() {
	close(am.done)
}

// Resolve maps an asset-relative path onto the assets root.
func (am *AssetManager) Resolve(relative string) string {
	return filepath.Join(am.root, relative)
}

// LoadImage decodes a texture file under the assets root.
func (am *AssetManager) LoadImage(relative string) (*resources.ImageData, error) {
	path := am.Resolve(relative)
	data, err := am.images.Load(path)
	if err != nil {
		return nil, err
	}
	am.touch(path)
	return data, nil
}

// LoadModel parses a GLTF file under the assets root.
func (am *AssetManager) LoadModel(relative string) ([]resources.MeshData, []resources.MaterialData, error) {
	path := am.Resolve(relative)
	meshes, materials, err := am.models.Load(path)
	if err != nil {
		return nil, nil, err
	}
	am.touch(path)
	return meshes, materials, nil
}

func (am *AssetManager) touch(path string) {
	am.mutex.Lock()
	am.assets[path] = AssetInfo{Path: path, LastLoaded: time.Now()}
	am.mutex.Unlock()
}

// Loaded reports whether the manager has served the asset at least once.
func (am *AssetManager) Loaded(path string) bool {
	am.mutex.RLock()
	_, ok := am.assets[path]
	am.mutex.RUnlock()
	return ok
}

func (am *AssetManager) run() {
	for {
		select {
		case event, ok := <-am.watcher.Events:
			if !ok {
				return
			}
			info, err := os.Stat(event.Name)
			if err == nil && info.IsDir() {
				if event.Op&fsnotify.Create != 0 {
					am.watchRecursive(event.Name)
				}
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				core.LogDebug("asset changed: %s", event.Name)
				context := core.EventContext{}
				core.EventFire(core.EVENT_CODE_ASSET_CHANGED, context)
			}

		case err, ok := <-am.watcher.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err.Error())

		case <-am.done:
			am.watcher.Close()
			return
		}
	}
}

func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return am.watcher.Add(walkPath)
		}
		return nil
	})
}
