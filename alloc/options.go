package alloc

import "github.com/joshuapare/memfile/alloc/registry"

type config struct {
	confirm  Confirmer
	paths    PathProvider
	observer Observer
	fallback Fallback
	capacity int
}

func defaults() config {
	return config{
		confirm:  AlwaysConfirm,
		paths:    NewCounterPaths(DefaultDir()),
		observer: NopObserver{},
		fallback: HeapFallback{},
		capacity: registry.DefaultCapacity,
	}
}

// Option configures an Allocator at construction. Collaborators are plain
// runtime values; anything left unset gets a no-op or default implementation.
type Option func(*config)

// WithConfirmer routes every allocation request through c before any state
// is created.
func WithConfirmer(c Confirmer) Option {
	return func(cfg *config) { cfg.confirm = c }
}

// WithPathProvider sources backing file locations from p.
func WithPathProvider(p PathProvider) Option {
	return func(cfg *config) { cfg.paths = p }
}

// WithObserver attaches o to the allocation lifecycle events.
func WithObserver(o Observer) Option {
	return func(cfg *config) { cfg.observer = o }
}

// WithFallback replaces the heap fallback.
func WithFallback(f Fallback) Option {
	return func(cfg *config) { cfg.fallback = f }
}

// WithRegistryCapacity pre-sizes the allocation registry. The default is
// registry.DefaultCapacity; shrink it only when the allocation count is
// genuinely bounded.
func WithRegistryCapacity(n int) Option {
	return func(cfg *config) { cfg.capacity = n }
}
