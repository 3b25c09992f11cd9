package geom

import (
	"math"
	"testing"
)

const tolerance = 1e-9

func TestMoveTowardsSnapsWithinStep(t *testing.T) {
	cases := []struct {
		name    string
		from    Point
		to      Point
		step    float64
		want    Point
		snapped bool
	}{
		{"exact step", Point{0, 0}, Point{3, 4}, 5, Point{3, 4}, true},
		{"short of step", Point{10, 10}, Point{11, 10}, 2, Point{11, 10}, true},
		{"same point", Point{7, -2}, Point{7, -2}, 2, Point{7, -2}, true},
		{"far", Point{0, 0}, Point{30, 40}, 5, Point{3, 4}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MoveTowards(tc.from, tc.to, tc.step)
			if math.Abs(got.X-tc.want.X) > tolerance || math.Abs(got.Y-tc.want.Y) > tolerance {
				t.Fatalf("MoveTowards(%v, %v, %v) = %v, want %v", tc.from, tc.to, tc.step, got, tc.want)
			}
			if tc.snapped && got != tc.to {
				t.Fatalf("expected exact snap to %v, got %v", tc.to, got)
			}
		})
	}
}

func TestMoveTowardsStepsExactlyAlongDirection(t *testing.T) {
	from := Point{50, 325}
	to := Point{920, 80}
	step := 2.0

	got := MoveTowards(from, to, step)
	if d := Distance(from, got); math.Abs(d-step) > 1e-9 {
		t.Fatalf("moved %f, want %f", d, step)
	}
	// Colinear: cross product of (to-from) and (got-from) is zero.
	u := to.Sub(from)
	v := got.Sub(from)
	if cross := u.X*v.Y - u.Y*v.X; math.Abs(cross) > 1e-6 {
		t.Fatalf("result not colinear, cross=%g", cross)
	}
}

func TestCircleContains(t *testing.T) {
	c := Circle{Center: Point{420, 200}, Radius: 70}
	if !c.Contains(Point{420, 200}) {
		t.Fatal("centre must be inside")
	}
	if !c.Contains(Point{490, 200}) {
		t.Fatal("boundary point must be inside")
	}
	if c.Contains(Point{491, 200}) {
		t.Fatal("point past radius must be outside")
	}
}

func TestSegmentHitsCircle(t *testing.T) {
	c := Circle{Center: Point{0, 0}, Radius: 10}
	cases := []struct {
		name string
		a, b Point
		want bool
	}{
		{"through centre", Point{-20, 0}, Point{20, 0}, true},
		{"fully outside", Point{-20, 15}, Point{20, 15}, false},
		{"endpoint inside", Point{5, 0}, Point{40, 40}, true},
		{"pointing away", Point{11, 0}, Point{40, 0}, false},
		{"grazing tangent", Point{-20, 10}, Point{20, 10}, false},
		{"degenerate inside", Point{1, 1}, Point{1, 1}, true},
		{"degenerate outside", Point{30, 1}, Point{30, 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SegmentHitsCircle(tc.a, tc.b, c); got != tc.want {
				t.Fatalf("SegmentHitsCircle(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestNormalizeAngle(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{5 * math.Pi, math.Pi},
	}
	for _, tc := range cases {
		got := NormalizeAngle(tc.in)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("NormalizeAngle(%f) = %f, want %f", tc.in, got, tc.want)
		}
	}
}

func TestArcPathWrapsAroundDangerAndEndsAtDestination(t *testing.T) {
	danger := Circle{Center: Point{420, 200}, Radius: 70}
	safe := Circle{Center: Point{100, 380}, Radius: 48}
	inside := Point{380, 160}
	outward := inside.Sub(danger.Center)
	exit := danger.Center.Add(outward.Scale((danger.Radius + 10) / outward.Len()))

	opts := DefaultArcOptions()
	path := ArcPath(exit, danger, safe, opts)

	if len(path) < opts.MinSteps+2 {
		t.Fatalf("expected at least %d points, got %d", opts.MinSteps+2, len(path))
	}
	if last := path[len(path)-1]; last != safe.Center {
		t.Fatalf("path must end at safe centre, got %v", last)
	}
	edge := path[len(path)-2]
	if d := Distance(edge, safe.Center); math.Abs(d-safe.Radius) > 1e-6 {
		t.Fatalf("penultimate point should sit on the safe boundary, dist=%f", d)
	}

	arc := path[:len(path)-2]
	for i, p := range arc {
		if d := Distance(p, danger.Center); math.Abs(d-(danger.Radius+opts.Buffer)) > 1e-6 {
			t.Fatalf("arc point %d off the buffered circle: dist=%f", i, d)
		}
	}
	if SegmentHitsCircle(arc[len(arc)-1], edge, danger) {
		t.Fatal("straight leg must clear the danger circle")
	}

	// Shorter direction: total turn never exceeds pi.
	a0 := AngleOf(danger.Center, exit)
	aEnd := AngleOf(danger.Center, arc[len(arc)-1])
	if turn := math.Abs(NormalizeAngle(aEnd - a0)); turn > math.Pi+1e-9 {
		t.Fatalf("arc turned %f rad, expected shorter direction", turn)
	}
}

func TestArcPathNudgesAreBounded(t *testing.T) {
	danger := Circle{Center: Point{0, 0}, Radius: 50}
	// Destination overlapping the danger circle can never be cleared.
	dest := Circle{Center: Point{-10, 0}, Radius: 5}
	opts := DefaultArcOptions()
	opts.MaxNudges = 3

	path := ArcPath(Point{60, 0}, danger, dest, opts)
	steps := int(math.Ceil(math.Pi * (danger.Radius + opts.Buffer) / opts.StepLength))
	if max := steps + opts.MaxNudges + 2; len(path) > max {
		t.Fatalf("path length %d exceeds bound %d", len(path), max)
	}
}

func TestPathLength(t *testing.T) {
	got := PathLength(Point{0, 0}, []Point{{3, 4}, {3, 10}})
	if math.Abs(got-11) > tolerance {
		t.Fatalf("PathLength = %f, want 11", got)
	}
}
