// Package targeter implements the interactive target-selection protocol an
// ability uses to collect player-chosen targets: a closed set of shapes, the
// mutable TargeterData a script builds, and the Targeter state machine that
// runs across input events.
package targeter

import (
	"errors"
	"fmt"
	"math"

	"github.com/cory-johannsen/tactica/internal/game/geometry"
)

// ErrUnknownObjectSize is returned when a shape or passability constraint
// names an object size that is not loaded.
var ErrUnknownObjectSize = errors.New("targeter: unknown object size")

// Kind tags the Shape variant.
type Kind int

const (
	Single Kind = iota
	Circle
	Cone
	Line
	ObjectSize
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case Single:
		return "single"
	case Circle:
		return "circle"
	case Cone:
		return "cone"
	case Line:
		return "line"
	case ObjectSize:
		return "object_size"
	default:
		return "unknown"
	}
}

// Shape is the closed geometry variant a targeter selects with. Only the
// fields of its Kind are meaningful.
type Shape struct {
	Kind   Kind
	Radius float64
	// Angle is the full cone angle in radians.
	Angle  float64
	Origin geometry.Point
	// Size names an object size for Line and ObjectSize.
	Size string
}

// SingleShape selects one entity.
func SingleShape() Shape { return Shape{Kind: Single} }

// CircleShape covers tiles within radius of the cursor.
func CircleShape(radius float64) Shape { return Shape{Kind: Circle, Radius: radius} }

// ConeShape covers tiles within radius of origin and within half of angle of
// the direction from origin toward the cursor.
func ConeShape(origin geometry.Point, radius, angle float64) Shape {
	return Shape{Kind: Cone, Origin: origin, Radius: radius, Angle: angle}
}

// LineShape covers a line of size footprints from origin toward the cursor.
func LineShape(size string, origin geometry.Point) Shape {
	return Shape{Kind: Line, Size: size, Origin: origin}
}

// ObjectSizeShape covers the size footprint centered on the cursor.
func ObjectSizeShape(size string) Shape { return Shape{Kind: ObjectSize, Size: size} }

// IsArea reports whether the shape affects more than the hovered entity.
func (s Shape) IsArea() bool { return s.Kind != Single }

// Validate checks the shape parameters and resolves any named object size.
//
// Postcondition: returns an error wrapping ErrUnknownObjectSize if Size does
// not resolve against sizes.
func (s Shape) Validate(sizes *geometry.Sizes) error {
	switch s.Kind {
	case Single:
		return nil
	case Circle:
		if s.Radius < 0 || math.IsNaN(s.Radius) {
			return fmt.Errorf("targeter: circle radius must be >= 0, got %v", s.Radius)
		}
		return nil
	case Cone:
		if s.Radius < 0 || math.IsNaN(s.Radius) {
			return fmt.Errorf("targeter: cone radius must be >= 0, got %v", s.Radius)
		}
		if s.Angle < 0 || s.Angle > 2*math.Pi || math.IsNaN(s.Angle) {
			return fmt.Errorf("targeter: cone angle must be in [0, 2π], got %v", s.Angle)
		}
		return nil
	case Line, ObjectSize:
		if _, ok := sizes.Get(s.Size); !ok {
			return fmt.Errorf("%w %q", ErrUnknownObjectSize, s.Size)
		}
		return nil
	default:
		return fmt.Errorf("targeter: unknown shape kind %d", s.Kind)
	}
}

// Contains reports whether tile p is affected when the cursor is at cursor.
//
// Precondition: s has passed Validate against sizes.
func (s Shape) Contains(cursor, p geometry.Point, sizes *geometry.Sizes) bool {
	switch s.Kind {
	case Single:
		return p == cursor
	case Circle:
		return geometry.Dist(cursor, p) <= s.Radius
	case Cone:
		return s.coneContains(cursor, p)
	default:
		for _, c := range s.Cells(cursor, sizes) {
			if c == p {
				return true
			}
		}
		return false
	}
}

func (s Shape) coneContains(cursor, p geometry.Point) bool {
	if p == s.Origin {
		return true
	}
	if geometry.Dist(s.Origin, p) > s.Radius {
		return false
	}
	if cursor == s.Origin {
		return false
	}
	facing := geometry.Angle(s.Origin, cursor)
	return geometry.AngleDiff(geometry.Angle(s.Origin, p), facing) <= s.Angle/2
}

// Cells returns every tile the shape covers for the cursor, without
// duplicates. Tiles may lie outside the map; the caller filters them.
//
// Precondition: s has passed Validate against sizes.
func (s Shape) Cells(cursor geometry.Point, sizes *geometry.Sizes) []geometry.Point {
	switch s.Kind {
	case Single:
		return []geometry.Point{cursor}
	case Circle:
		return s.scan(cursor, s.Radius, func(p geometry.Point) bool { return geometry.Dist(cursor, p) <= s.Radius })
	case Cone:
		return s.scan(s.Origin, s.Radius, func(p geometry.Point) bool { return s.coneContains(cursor, p) })
	case Line:
		size, ok := sizes.Get(s.Size)
		if !ok {
			return nil
		}
		var out []geometry.Point
		seen := map[geometry.Point]bool{}
		for _, lp := range geometry.LinePoints(s.Origin, cursor) {
			for _, c := range size.CenteredAt(lp) {
				if !seen[c] {
					seen[c] = true
					out = append(out, c)
				}
			}
		}
		return out
	case ObjectSize:
		size, ok := sizes.Get(s.Size)
		if !ok {
			return nil
		}
		return size.CenteredAt(cursor)
	default:
		return nil
	}
}

// scan returns the tiles in the bounding square of radius around center
// that satisfy in, in row-major order.
func (s Shape) scan(center geometry.Point, radius float64, in func(geometry.Point) bool) []geometry.Point {
	r := int(math.Ceil(radius))
	var out []geometry.Point
	for y := center.Y - r; y <= center.Y+r; y++ {
		for x := center.X - r; x <= center.X+r; x++ {
			p := geometry.Point{X: x, Y: y}
			if in(p) {
				out = append(out, p)
			}
		}
	}
	return out
}
