package assets

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spectralab/spectra/engine/core"
)

// The watcher fires EVENT_CODE_ASSET_CHANGED on its own goroutine; the render
// loop consumes the notification through an atomic flag. This exercises that
// handoff end to end against a real filesystem event.
func TestAssetChangeSignalsAcrossGoroutines(t *testing.T) {
	root := t.TempDir()

	var reloadPending atomic.Bool
	core.EventRegister(core.EVENT_CODE_ASSET_CHANGED, func(core.SystemEventCode, core.EventContext) {
		reloadPending.Store(true)
	})
	defer core.EventUnregisterAll(core.EVENT_CODE_ASSET_CHANGED)

	manager, err := NewAssetManager(root)
	require.NoError(t, err)
	defer manager.Shutdown()

	require.NoError(t, os.WriteFile(filepath.Join(root, "checker.png"), []byte("pixels"), 0o644))

	assert.Eventually(t, func() bool {
		return reloadPending.CompareAndSwap(true, false)
	}, 5*time.Second, 10*time.Millisecond)
	assert.False(t, reloadPending.Load())
}

func TestAssetManagerResolveAndLoaded(t *testing.T) {
	root := t.TempDir()
	manager, err := NewAssetManager(root)
	require.NoError(t, err)
	defer manager.Shutdown()

	resolved := manager.Resolve("textures/stone.png")
	assert.Equal(t, filepath.Join(root, "textures/stone.png"), resolved)
	assert.False(t, manager.Loaded(resolved))
}
