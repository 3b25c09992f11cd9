package sim

import (
	"time"

	"drone-spoof/internal/geom"
)

// Entity is a tracked drone: where it is, where it has been and which
// mission waypoint it is heading for.
type Entity struct {
	Position geom.Point
	Path     []geom.Point
	Waypoint int
	Heading  float64
}

func newEntity(start geom.Point) Entity {
	return Entity{
		Position: start,
		Path:     []geom.Point{start},
	}
}

// moveTo returns a copy of e at p. The trail is copied on append so states
// sharing a prefix never see each other's later points.
func (e Entity) moveTo(p geom.Point) Entity {
	if p != e.Position {
		e.Heading = geom.Heading(e.Position, p)
	}
	e.Position = p
	e.Path = append(e.Path[:len(e.Path):len(e.Path)], p)
	return e
}

// State is an immutable snapshot of one simulation run. Reducers take a
// State by value and return the next one.
type State struct {
	RunID    string
	Scenario string
	Phase    Phase
	Playing  bool

	ElapsedMs int64
	// TelemetrySecond is the last whole simulated second that produced a
	// telemetry footprint.
	TelemetrySecond int64

	Actual Entity
	Ghost  Entity
	// Diverted latches once the actual drone has been steered to the
	// adversary target; it is only cleared by Reset.
	Diverted bool

	JammerRadius float64
	Status       string
	Footprints   FootprintLog
}

// Clock supplies wall time for footprint timestamps.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// EntityView is the wire form of an Entity.
type EntityView struct {
	Position geom.Point   `json:"position" msgpack:"position"`
	Path     []geom.Point `json:"path" msgpack:"path"`
	Waypoint int          `json:"waypoint" msgpack:"waypoint"`
	Heading  float64      `json:"heading" msgpack:"heading"`
}

// View is the flattened snapshot sent to clients and printed by the CLI.
type View struct {
	RunID        string      `json:"runId,omitempty" msgpack:"runId,omitempty"`
	Scenario     string      `json:"scenario" msgpack:"scenario"`
	Phase        string      `json:"phase" msgpack:"phase"`
	Playing      bool        `json:"playing" msgpack:"playing"`
	ElapsedMs    int64       `json:"elapsedMs" msgpack:"elapsedMs"`
	Actual       EntityView  `json:"actual" msgpack:"actual"`
	Ghost        EntityView  `json:"ghost" msgpack:"ghost"`
	Diverted     bool        `json:"diverted" msgpack:"diverted"`
	JammerRadius float64     `json:"jammerRadius" msgpack:"jammerRadius"`
	Status       string      `json:"status" msgpack:"status"`
	Footprints   []Footprint `json:"footprints" msgpack:"footprints"`
}

func (e Entity) view() EntityView {
	return EntityView{
		Position: e.Position,
		Path:     append([]geom.Point(nil), e.Path...),
		Waypoint: e.Waypoint,
		Heading:  e.Heading,
	}
}

func (s State) View() View {
	return View{
		RunID:        s.RunID,
		Scenario:     s.Scenario,
		Phase:        s.Phase.String(),
		Playing:      s.Playing,
		ElapsedMs:    s.ElapsedMs,
		Actual:       s.Actual.view(),
		Ghost:        s.Ghost.view(),
		Diverted:     s.Diverted,
		JammerRadius: s.JammerRadius,
		Status:       s.Status,
		Footprints:   s.Footprints.Entries(),
	}
}
