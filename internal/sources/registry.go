package sources

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

type Descriptor struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type HealthStatus struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

func NewRegistry() *Registry {
	return &Registry{sources: map[string]Source{}}
}

func (r *Registry) Register(source Source) error {
	if source == nil {
		return fmt.Errorf("source is nil")
	}

	key := source.Key()
	if key == "" {
		return fmt.Errorf("source key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[key]; exists {
		return fmt.Errorf("source %q already registered", key)
	}

	r.sources[key] = source
	return nil
}

func (r *Registry) Get(key string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	source, ok := r.sources[key]
	return source, ok
}

func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]Descriptor, 0, len(r.sources))
	for _, source := range r.sources {
		items = append(items, Descriptor{
			Key:  source.Key(),
			Name: source.Name(),
			Kind: source.Kind(),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Key < items[j].Key
	})

	return items
}

func (r *Registry) Health(ctx context.Context) []HealthStatus {
	r.mu.RLock()
	list := make([]Source, 0, len(r.sources))
	for _, source := range r.sources {
		list = append(list, source)
	}
	r.mu.RUnlock()

	// Checks hit upstream sites, so they run in parallel and the slowest
	// source bounds the whole sweep instead of the sum of them.
	statuses := make([]HealthStatus, len(list))
	var wg sync.WaitGroup
	for i, source := range list {
		wg.Add(1)
		go func(i int, source Source) {
			defer wg.Done()
			err := source.HealthCheck(ctx)
			status := HealthStatus{
				Key:     source.Key(),
				Name:    source.Name(),
				Kind:    source.Kind(),
				Healthy: err == nil,
			}
			if err != nil {
				status.Error = err.Error()
			}
			statuses[i] = status
		}(i, source)
	}
	wg.Wait()

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Key < statuses[j].Key
	})

	return statuses
}
