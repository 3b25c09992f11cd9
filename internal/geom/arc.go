package geom

import "math"

type ArcOptions struct {
	// Buffer is added to the danger radius to get the arc radius.
	Buffer     float64
	StepLength float64
	MinSteps   int
	NudgeAngle float64
	MaxNudges  int
}

func DefaultArcOptions() ArcOptions {
	return ArcOptions{
		Buffer:     10,
		StepLength: 12,
		MinSteps:   8,
		NudgeAngle: math.Pi / 36,
		MaxNudges:  24,
	}
}

// WithDefaults fills unset fields from DefaultArcOptions.
func (o ArcOptions) WithDefaults() ArcOptions {
	def := DefaultArcOptions()
	if o.Buffer <= 0 {
		o.Buffer = def.Buffer
	}
	if o.StepLength <= 0 {
		o.StepLength = def.StepLength
	}
	if o.MinSteps <= 0 {
		o.MinSteps = def.MinSteps
	}
	if o.NudgeAngle <= 0 {
		o.NudgeAngle = def.NudgeAngle
	}
	if o.MaxNudges < 0 {
		o.MaxNudges = 0
	}
	return o
}

// ArcPath walks around danger on its buffered circle starting at exit, turning
// the shorter way toward dest, then heads straight for dest's boundary and
// centre. The returned points do not include exit itself.
func ArcPath(exit Point, danger Circle, dest Circle, opts ArcOptions) []Point {
	opts = opts.WithDefaults()
	bufferR := danger.Radius + opts.Buffer
	a0 := AngleOf(danger.Center, exit)
	aTarget := AngleOf(danger.Center, dest.Center)
	delta := NormalizeAngle(aTarget - a0)

	arcLen := math.Abs(delta) * bufferR
	steps := int(math.Ceil(arcLen / opts.StepLength))
	if steps < opts.MinSteps {
		steps = opts.MinSteps
	}

	points := make([]Point, 0, steps+opts.MaxNudges+2)
	lastAng := a0
	for i := 1; i <= steps; i++ {
		ang := a0 + float64(i)/float64(steps)*delta
		points = append(points, PointOnCircle(danger.Center, bufferR, ang))
		lastAng = ang
	}

	last := exit
	if len(points) > 0 {
		last = points[len(points)-1]
	}

	dir := 1.0
	if delta < 0 {
		dir = -1.0
	}
	edge := dest.EdgeToward(last)
	for attempts := 0; SegmentHitsCircle(last, edge, danger) && attempts < opts.MaxNudges; attempts++ {
		lastAng += dir * opts.NudgeAngle
		last = PointOnCircle(danger.Center, bufferR, lastAng)
		points = append(points, last)
		edge = dest.EdgeToward(last)
	}

	return append(points, edge, dest.Center)
}

// PathLength sums the segment lengths of start followed by path.
func PathLength(start Point, path []Point) float64 {
	total := 0.0
	prev := start
	for _, p := range path {
		total += Distance(prev, p)
		prev = p
	}
	return total
}
