package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize sets the maximum number of ids kept. <= 0 disables eviction.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithOnEvict registers a callback for ids dropped by capacity eviction.
// It runs under the deduper's lock and must not call back into it.
func WithOnEvict(fn func(id string)) Option {
	return func(d *inMemoryDeduper) {
		d.onEvict = fn
	}
}
