package entity

import (
	"errors"
	"fmt"
)

// ErrGone is returned when a handle no longer resolves to a live entity.
// Callers treat it as a no-op: entities routinely leave the simulation
// between handle creation and use.
var ErrGone = errors.New("entity: handle does not resolve to a live entity")

// ErrBorrowed is returned by With when the entity is already mutably borrowed.
var ErrBorrowed = errors.New("entity: entity is already borrowed")

type slot[T any] struct {
	value    T
	live     bool
	borrowed bool
}

// Registry is an arena of values addressed by Handle.
//
// Slots are never reused, so a handle to a removed entity stays stale forever
// instead of aliasing a newer entity. Registry is not safe for concurrent
// use; the simulation goroutine owns it.
type Registry[T any] struct {
	slots []slot[T]
	live  int
}

// NewRegistry returns an empty Registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Insert stores v in a fresh slot.
//
// Postcondition: Live(h) is true for the returned handle.
func (r *Registry[T]) Insert(v T) Handle {
	r.slots = append(r.slots, slot[T]{value: v, live: true})
	r.live++
	return Handle(len(r.slots) - 1)
}

// Remove retires the slot for h and returns the value it held.
//
// Postcondition: Live(h) is false; returns (zero, false) if h was not live.
func (r *Registry[T]) Remove(h Handle) (T, bool) {
	var zero T
	if !r.Live(h) {
		return zero, false
	}
	s := &r.slots[h]
	v := s.value
	s.value = zero
	s.live = false
	s.borrowed = false
	r.live--
	return v, true
}

// Live reports whether h refers to a live slot.
func (r *Registry[T]) Live(h Handle) bool {
	return h.Valid() && int(h) < len(r.slots) && r.slots[h].live
}

// Get returns the value for h for read access.
//
// Postcondition: returns (zero, false) if h is stale or invalid.
func (r *Registry[T]) Get(h Handle) (T, bool) {
	if !r.Live(h) {
		var zero T
		return zero, false
	}
	return r.slots[h].value, true
}

// With grants fn exclusive mutable access to the value for h.
// A nested With on the same handle fails with ErrBorrowed; the first
// mutation must complete and release before the next begins.
//
// Postcondition: returns ErrGone if h is stale, ErrBorrowed on re-entry,
// otherwise the error returned by fn.
func (r *Registry[T]) With(h Handle, fn func(T) error) error {
	if !r.Live(h) {
		return fmt.Errorf("handle %s: %w", h, ErrGone)
	}
	if r.slots[h].borrowed {
		return fmt.Errorf("handle %s: %w", h, ErrBorrowed)
	}
	r.slots[h].borrowed = true
	defer func() {
		if int(h) < len(r.slots) {
			r.slots[h].borrowed = false
		}
	}()
	return fn(r.slots[h].value)
}

// Handles returns every live handle in ascending order.
func (r *Registry[T]) Handles() []Handle {
	out := make([]Handle, 0, r.live)
	for i := range r.slots {
		if r.slots[i].live {
			out = append(out, Handle(i))
		}
	}
	return out
}

// Len returns the number of live entries.
func (r *Registry[T]) Len() int { return r.live }
