package assistant

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type RegistryConfig struct {
	Size int
	TTL  time.Duration
	New  func(clientID string) *Bridge
}

// Registry keeps one bridge per client. Idle bridges expire after TTL and the
// least recently used ones are dropped beyond Size; their transcripts are
// gone with them.
type Registry struct {
	mu      sync.Mutex
	bridges *expirable.LRU[string, *Bridge]
	newFn   func(clientID string) *Bridge
}

func NewRegistry(cfg RegistryConfig) *Registry {
	size := cfg.Size
	if size <= 0 {
		size = 1000
	}
	return &Registry{
		bridges: expirable.NewLRU[string, *Bridge](size, nil, cfg.TTL),
		newFn:   cfg.New,
	}
}

func (r *Registry) Get(clientID string) *Bridge {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bridges.Get(clientID); ok {
		return b
	}
	b := r.newFn(clientID)
	r.bridges.Add(clientID, b)
	return b
}

// Peek returns the bridge without creating one or refreshing its recency.
func (r *Registry) Peek(clientID string) (*Bridge, bool) {
	return r.bridges.Peek(clientID)
}

func (r *Registry) Reset(clientID string) {
	r.bridges.Remove(clientID)
}

func (r *Registry) Len() int {
	return r.bridges.Len()
}
