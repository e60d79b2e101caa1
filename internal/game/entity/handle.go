// Package entity provides stable integer handles and the arena that owns the
// live state they refer to. Every cross-entity reference in the simulation,
// including references held by scripts and targeters, is a Handle.
package entity

import (
	"strconv"

	"github.com/cory-johannsen/tactica/internal/game/geometry"
)

// Handle is an index into a Registry.
//
// Invariant: a Handle is never dereferenced without a liveness check against
// the Registry that issued it.
type Handle int

// None is the invalid handle. In a Set it marks a shape slot with no entity.
const None Handle = -1

// Valid reports whether h could refer to a registry slot.
// It does not check liveness; use Registry.Live for that.
func (h Handle) Valid() bool { return h >= 0 }

// String returns the decimal index, or "none".
func (h Handle) String() string {
	if !h.Valid() {
		return "none"
	}
	return strconv.Itoa(int(h))
}

// Set is an ordered sequence of optional handles built per targeting
// operation, plus the map point that was committed, if any.
type Set struct {
	Handles []Handle
	Point   *geometry.Point
}

// NewSet returns a Set holding a copy of handles.
//
// Postcondition: mutating the argument slice does not affect the Set.
func NewSet(handles ...Handle) Set {
	hs := make([]Handle, len(handles))
	copy(hs, handles)
	return Set{Handles: hs}
}

// WithPoint returns a copy of s carrying the committed point p.
func (s Set) WithPoint(p geometry.Point) Set {
	out := NewSet(s.Handles...)
	out.Point = &p
	return out
}

// Len returns the number of slots, including empty ones.
func (s Set) Len() int { return len(s.Handles) }

// Contains reports whether h occupies any slot.
func (s Set) Contains(h Handle) bool {
	if !h.Valid() {
		return false
	}
	for _, x := range s.Handles {
		if x == h {
			return true
		}
	}
	return false
}

// Without returns a copy of s with every occurrence of h removed.
func (s Set) Without(h Handle) Set {
	out := Set{Handles: make([]Handle, 0, len(s.Handles)), Point: s.Point}
	for _, x := range s.Handles {
		if x != h {
			out.Handles = append(out.Handles, x)
		}
	}
	return out
}

// Present returns the non-empty slots in order.
func (s Set) Present() []Handle {
	out := make([]Handle, 0, len(s.Handles))
	for _, x := range s.Handles {
		if x.Valid() {
			out = append(out, x)
		}
	}
	return out
}
