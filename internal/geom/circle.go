package geom

import "math"

// boundaryEpsilon keeps a segment that merely grazes the circle from
// counting as a hit.
const boundaryEpsilon = 0.0001

type Circle struct {
	Center Point   `json:"center" yaml:"center" msgpack:"center"`
	Radius float64 `json:"radius" yaml:"radius" msgpack:"radius"`
}

// Contains reports whether p lies inside or on the circle.
func (c Circle) Contains(p Point) bool {
	return Distance(p, c.Center) <= c.Radius
}

// Grow returns a concentric circle with the radius extended by d.
func (c Circle) Grow(d float64) Circle {
	return Circle{Center: c.Center, Radius: c.Radius + d}
}

// EdgeToward returns the point on the circle boundary facing p.
func (c Circle) EdgeToward(p Point) Point {
	dir := p.Sub(c.Center)
	d := dir.Len()
	if d == 0 {
		d = 1
	}
	return c.Center.Add(dir.Scale(c.Radius / d))
}

func AngleOf(center, p Point) float64 {
	return math.Atan2(p.Y-center.Y, p.X-center.X)
}

func PointOnCircle(center Point, r, angle float64) Point {
	return Point{
		X: center.X + r*math.Cos(angle),
		Y: center.Y + r*math.Sin(angle),
	}
}

// NormalizeAngle maps delta into (-pi, pi].
func NormalizeAngle(delta float64) float64 {
	for delta > math.Pi {
		delta -= 2 * math.Pi
	}
	for delta <= -math.Pi {
		delta += 2 * math.Pi
	}
	return delta
}

// SegmentHitsCircle reports whether the segment ab passes through c.
func SegmentHitsCircle(a, b Point, c Circle) bool {
	vx, vy := b.X-a.X, b.Y-a.Y
	wx, wy := c.Center.X-a.X, c.Center.Y-a.Y
	c1 := vx*wx + vy*wy
	c2 := vx*vx + vy*vy
	t := 0.0
	if c2 != 0 {
		t = c1 / c2
	}
	t = Clamp(t, 0, 1)
	closest := Point{X: a.X + vx*t, Y: a.Y + vy*t}
	return Distance(closest, c.Center) <= c.Radius-boundaryEpsilon
}
