package board

import (
	"context"
	"sync"

	"go.uber.org/atomic"
)

// BasicDigitalInterrupt tracks the level of an input pin and delivers every edge to its
// listeners.
type BasicDigitalInterrupt struct {
	name  string
	level atomic.Bool
	count atomic.Int64

	mu        sync.RWMutex
	callbacks []chan Tick
}

// NewBasicDigitalInterrupt returns an interrupt named name starting at the given level. Pulled-up
// inputs rest high.
func NewBasicDigitalInterrupt(name string, initialHigh bool) *BasicDigitalInterrupt {
	i := &BasicDigitalInterrupt{name: name}
	i.level.Store(initialHigh)
	return i
}

// Name returns the name of the interrupt.
func (i *BasicDigitalInterrupt) Name() string {
	return i.name
}

// Value returns 1 when the last seen level was high, 0 otherwise.
func (i *BasicDigitalInterrupt) Value(ctx context.Context, extra map[string]interface{}) (int64, error) {
	if i.level.Load() {
		return 1, nil
	}
	return 0, nil
}

// Edges returns how many ticks have been seen.
func (i *BasicDigitalInterrupt) Edges() int64 {
	return i.count.Load()
}

// Tick records an edge and blocks until every listener received it or ctx is done.
func (i *BasicDigitalInterrupt) Tick(ctx context.Context, high bool, nanoseconds uint64) error {
	i.level.Store(high)
	i.count.Inc()

	i.mu.RLock()
	callbacks := make([]chan Tick, len(i.callbacks))
	copy(callbacks, i.callbacks)
	i.mu.RUnlock()

	for _, c := range callbacks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c <- Tick{Name: i.name, High: high, TimestampNanosec: nanoseconds}:
		}
	}
	return nil
}

// AddCallback adds a listener for interrupts.
func (i *BasicDigitalInterrupt) AddCallback(c chan Tick) {
	i.mu.Lock()
	i.callbacks = append(i.callbacks, c)
	i.mu.Unlock()
}

// RemoveCallback removes a listener for interrupts.
func (i *BasicDigitalInterrupt) RemoveCallback(c chan Tick) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for id := range i.callbacks {
		if i.callbacks[id] == c {
			// To remove this item, we replace it with the last item in the list, then truncate the
			// list by 1.
			i.callbacks[id] = i.callbacks[len(i.callbacks)-1]
			i.callbacks = i.callbacks[:len(i.callbacks)-1]
			break
		}
	}
}
