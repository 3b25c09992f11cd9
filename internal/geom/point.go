package geom

import "math"

// Point is a 2D position in world units.
type Point struct {
	X float64 `json:"x" yaml:"x" msgpack:"x"`
	Y float64 `json:"y" yaml:"y" msgpack:"y"`
}

func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

func (p Point) Scale(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

// Len returns the Euclidean length of p treated as a vector.
func (p Point) Len() float64 {
	return math.Hypot(p.X, p.Y)
}

func Distance(p1, p2 Point) float64 {
	dx := p1.X - p2.X
	dy := p1.Y - p2.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// MoveTowards advances current by step units toward target. When target is
// within one step the result is target itself, which also covers the
// zero-length direction.
func MoveTowards(current, target Point, step float64) Point {
	dist := Distance(current, target)
	if dist <= step || dist == 0 {
		return target
	}
	dx := (target.X - current.X) / dist
	dy := (target.Y - current.Y) / dist
	return Point{
		X: current.X + dx*step,
		Y: current.Y + dy*step,
	}
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Heading returns the direction from p1 to p2 in degrees, 0..360.
func Heading(p1, p2 Point) float64 {
	h := math.Atan2(p2.Y-p1.Y, p2.X-p1.X) * 180 / math.Pi
	if h < 0 {
		h += 360
	}
	return h
}
