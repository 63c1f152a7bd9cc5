package rotation

import "sync/atomic"

// Pool is a fixed, circularly-consumed list of interchangeable values, used to
// vary outbound request fingerprints (proxy endpoints, user-agent strings).
// The backing slice is copied at construction and never changes afterwards.
type Pool[T any] struct {
	values  []T
	counter atomic.Uint64
}

// NewPool creates a pool over the given values. An empty (or nil) slice is
// valid and yields a pool whose Next always reports false: rotation disabled.
func NewPool[T any](values []T) *Pool[T] {
	copied := make([]T, len(values))
	copy(copied, values)
	return &Pool[T]{values: copied}
}

// Next returns the next value in a round-robin fashion, starting from the
// first configured value and wrapping around. The second return is false when
// the pool is empty. It is safe for concurrent use; serialized callers see
// each value exactly once per len(pool) consecutive calls, in configured order.
func (p *Pool[T]) Next() (T, bool) {
	if len(p.values) == 0 {
		var zero T
		return zero, false
	}
	idx := p.counter.Add(1) - 1
	return p.values[idx%uint64(len(p.values))], true
}

// Len returns the number of configured values.
func (p *Pool[T]) Len() int {
	return len(p.values)
}

// Values returns a copy of the configured values in rotation order.
func (p *Pool[T]) Values() []T {
	copied := make([]T, len(p.values))
	copy(copied, p.values)
	return copied
}
