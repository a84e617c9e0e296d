package resources

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterRelease(t *testing.T) {
	registry := NewRegistry()

	bufferID := registry.Register(KindBuffer)
	imageID := registry.Register(KindImage)
	assert.Equal(t, 1, registry.Count(KindBuffer))
	assert.Equal(t, 1, registry.Count(KindImage))
	assert.Equal(t, 0, registry.Count(KindPipeline))
	assert.Equal(t, 2, registry.Total())

	require.NoError(t, registry.Release(bufferID))
	require.NoError(t, registry.Release(imageID))
	assert.Equal(t, 0, registry.Total())
}

func TestRegistryDoubleRelease(t *testing.T) {
	registry := NewRegistry()
	id := registry.Register(KindSampler)

	require.NoError(t, registry.Release(id))
	assert.Error(t, registry.Release(id))
}

func TestRegistryReleaseUnknown(t *testing.T) {
	registry := NewRegistry()
	assert.Error(t, registry.Release(uuid.New()))
}

// Counts must return to their pre-recreation values after a swapchain
// teardown and rebuild, or something leaked.
func TestRegistryStableAcrossRecreation(t *testing.T) {
	registry := NewRegistry()

	registry.Register(KindBuffer)
	registry.Register(KindPipeline)
	before := registry.Total()

	var transient []uuid.UUID
	transient = append(transient, registry.Register(KindSwapchain))
	for i := 0; i < 3; i++ {
		transient = append(transient, registry.Register(KindImage))
	}
	assert.Equal(t, before+4, registry.Total())

	for _, id := range transient {
		require.NoError(t, registry.Release(id))
	}
	assert.Equal(t, before, registry.Total())
	assert.Equal(t, 0, registry.Count(KindSwapchain))
}

func TestRegistryConcurrentUse(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := registry.Register(KindBuffer)
				assert.NoError(t, registry.Release(id))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, registry.Total())
}
