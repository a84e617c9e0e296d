package resources

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Kind tags what a registered GPU resource is, for diagnostics and the
// leak check that compares live counts across swapchain recreation.
type Kind string

const (
	KindBuffer    Kind = "buffer"
	KindImage     Kind = "image"
	KindSwapchain Kind = "swapchain"
	KindPipeline  Kind = "pipeline"
	KindSampler   Kind = "sampler"
)

// Registry tracks live GPU-resident resources by identity. Every create path
// in the renderer registers, every destroy path releases; a drift between the
// two is a lifetime bug.
type Registry struct {
	mutex sync.Mutex
	live  map[uuid.UUID]Kind
}

func NewRegistry() *Registry {
	return &Registry{
		live: make(map[uuid.UUID]Kind),
	}
}

// Register records a new live resource and returns its identity tag.
func (r *Registry) Register(kind Kind) uuid.UUID {
	id := uuid.New()
	r.mutex.Lock()
	r.live[id] = kind
	r.mutex.Unlock()
	return id
}

// Release drops a live resource. Releasing an unknown id is a lifetime bug.
func (r *Registry) Release(id uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.live[id]; !ok {
		return fmt.Errorf("resource %s released twice or never registered", id)
	}
	delete(r.live, id)
	return nil
}

// Count returns the number of live resources of the given kind.
func (r *Registry) Count(kind Kind) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	n := 0
	for _, k := range r.live {
		if k == kind {
			n++
		}
	}
	return n
}

// Total returns the number of live resources of any kind.
func (r *Registry) Total() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.live)
}
