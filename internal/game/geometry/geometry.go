// Package geometry holds tile coordinates and the authored object-size
// footprints that shapes and passability checks are expressed in.
package geometry

import (
	"fmt"
	"math"
)

// Point is a tile coordinate.
type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Add returns p translated by o.
func (p Point) Add(o Point) Point { return Point{X: p.X + o.X, Y: p.Y + o.Y} }

// String formats p as "(x,y)".
func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Dist returns the Euclidean distance between a and b.
func Dist(a, b Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Angle returns the direction from a toward b in radians, as atan2(dy, dx).
func Angle(a, b Point) float64 {
	return math.Atan2(float64(b.Y-a.Y), float64(b.X-a.X))
}

// AngleDiff returns the absolute smallest difference between two angles, in [0, π].
func AngleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

// LinePoints returns the cells of a Bresenham line from a to b, inclusive of both ends.
func LinePoints(a, b Point) []Point {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	err := dx + dy
	out := []Point{}
	p := a
	for {
		out = append(out, p)
		if p == b {
			return out
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			p.X += sx
		}
		if e2 <= dx {
			err += dx
			p.Y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
