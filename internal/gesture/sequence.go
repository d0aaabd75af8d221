// Package gesture turns hand centroid streams into gesture classes: it
// captures trajectories, parametrizes them into direction symbols, and
// trains and matches HMM banks built from prototype trajectories.
package gesture

import (
	"fmt"
	"math"
)

// Point is an integer pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	d := p.Sub(q)
	return math.Hypot(float64(d.X), float64(d.Y))
}

// String implements fmt.Stringer.
func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Sequence is an ordered buffer of points, earliest first.
type Sequence struct {
	points []Point
}

// NewSequence creates an empty Sequence.
func NewSequence() *Sequence {
	return &Sequence{}
}

// SequenceOf creates a Sequence holding a copy of points.
func SequenceOf(points ...Point) *Sequence {
	s := &Sequence{points: make([]Point, len(points))}
	copy(s.points, points)
	return s
}

// Add appends p.
func (s *Sequence) Add(p Point) {
	s.points = append(s.points, p)
}

// RemoveTail drops the last k points. It does nothing if k exceeds the length.
func (s *Sequence) RemoveTail(k int) {
	if k <= 0 || k > len(s.points) {
		return
	}
	s.points = s.points[:len(s.points)-k]
}

// Reset discards s and returns a fresh empty Sequence. The old buffer must
// not be used afterwards.
func (s *Sequence) Reset() *Sequence {
	s.points = nil
	return NewSequence()
}

// Len returns the number of points.
func (s *Sequence) Len() int {
	return len(s.points)
}

// At returns the i-th point.
func (s *Sequence) At(i int) Point {
	return s.points[i]
}

// Points returns a copy of the points.
func (s *Sequence) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Vector exports the points as (x, y) float pairs.
func (s *Sequence) Vector() [][2]float64 {
	out := make([][2]float64, len(s.points))
	for i, p := range s.points {
		out[i] = [2]float64{float64(p.X), float64(p.Y)}
	}
	return out
}
