package control

import (
	"context"

	"github.com/pkg/errors"
)

// DefaultCapacity is how many motors a loop services.
const DefaultCapacity = 4

// ErrRegistryFull is returned when every slot of a registry is taken.
var ErrRegistryFull = errors.New("motor registry is full")

// A Tickable is serviced once per loop tick.
type Tickable interface {
	Name() string
	Tick(ctx context.Context) error
}

// Registry is a fixed set of slots, each empty or holding one Tickable. It is not safe for
// concurrent use; Loop guards it.
type Registry struct {
	slots []Tickable
}

// NewRegistry returns an empty registry with capacity slots.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{slots: make([]Tickable, capacity)}
}

// Insert places t in the first empty slot and returns its index.
func (r *Registry) Insert(t Tickable) (int, error) {
	for idx, occupant := range r.slots {
		if occupant == t {
			return idx, errors.Errorf("%s is already registered in slot %d", t.Name(), idx)
		}
	}
	for idx, occupant := range r.slots {
		if occupant == nil {
			r.slots[idx] = t
			return idx, nil
		}
	}
	return -1, errors.Wrapf(ErrRegistryFull, "cannot register %s, all %d slots taken", t.Name(), len(r.slots))
}

// Remove empties the slot holding t. It reports whether t was found.
func (r *Registry) Remove(t Tickable) bool {
	for idx, occupant := range r.slots {
		if occupant == t {
			r.slots[idx] = nil
			return true
		}
	}
	return false
}

// Snapshot returns the occupants in slot order.
func (r *Registry) Snapshot() []Tickable {
	out := make([]Tickable, 0, len(r.slots))
	for _, occupant := range r.slots {
		if occupant != nil {
			out = append(out, occupant)
		}
	}
	return out
}

// Len returns the number of occupied slots.
func (r *Registry) Len() int {
	n := 0
	for _, occupant := range r.slots {
		if occupant != nil {
			n++
		}
	}
	return n
}

// Capacity returns the number of slots.
func (r *Registry) Capacity() int {
	return len(r.slots)
}
