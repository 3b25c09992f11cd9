package sim

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"drone-spoof/internal/geom"
)

var ErrUnknownScenario = errors.New("unknown scenario")

// Subject picks which drone a telemetry line reports on.
type Subject string

const (
	SubjectActual Subject = "actual"
	SubjectGhost  Subject = "ghost"
)

// Template is a footprint with placeholders expanded at emission time.
//
// Recognised placeholders: {actual}, {ghost}, {actual_wp}, {ghost_wp},
// {target}, {adversary}, {waypoints}, and {pos} and {wp}, which follow the
// telemetry rule's Subject (the actual drone elsewhere).
type Template struct {
	Kind    Kind   `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
}

// PhaseRule enters Phase once elapsed simulated time exceeds AfterMs.
// The NORMAL_FLIGHT rule is entered on start and its AfterMs is ignored.
type PhaseRule struct {
	Phase     Phase      `json:"phase" yaml:"phase"`
	AfterMs   int64      `json:"after_ms" yaml:"after_ms"`
	Status    string     `json:"status" yaml:"status"`
	Footprint Template   `json:"footprint" yaml:"footprint"`
	Reports   []Template `json:"reports,omitempty" yaml:"reports,omitempty"`
}

// TelemetryRule emits Template once per simulated second while the phase is
// within [From, To].
type TelemetryRule struct {
	From     Phase    `json:"from" yaml:"from"`
	To       Phase    `json:"to" yaml:"to"`
	Subject  Subject  `json:"subject" yaml:"subject"`
	Template Template `json:"template" yaml:"template"`
}

type Jammer struct {
	Origin geom.Point `json:"origin" yaml:"origin"`
	Growth float64    `json:"growth" yaml:"growth"`
	Max    float64    `json:"max" yaml:"max"`
	Phases []Phase    `json:"phases" yaml:"phases"`
}

func (j *Jammer) active(p Phase) bool {
	if j == nil {
		return false
	}
	for _, candidate := range j.Phases {
		if candidate == p {
			return true
		}
	}
	return false
}

type Scenario struct {
	Name        string `json:"name" yaml:"name"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	IdleStatus  string `json:"idle_status" yaml:"idle_status"`

	Start     geom.Point   `json:"start" yaml:"start"`
	Waypoints []geom.Point `json:"waypoints" yaml:"waypoints"`
	// Adversary is where the actual drone is steered once hijacked.
	Adversary geom.Point  `json:"adversary" yaml:"adversary"`
	Tower     *geom.Point `json:"tower,omitempty" yaml:"tower,omitempty"`

	Speed        float64       `json:"speed" yaml:"speed"`
	TickInterval time.Duration `json:"tick_interval" yaml:"tick_interval"`

	Rules        []PhaseRule     `json:"rules" yaml:"rules"`
	Telemetry    []TelemetryRule `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
	GhostArrival *Template       `json:"ghost_arrival,omitempty" yaml:"ghost_arrival,omitempty"`
	// ArrivalRadius completes the run once the ghost is this close to the
	// final waypoint. Zero disables arrival completion.
	ArrivalRadius float64 `json:"arrival_radius,omitempty" yaml:"arrival_radius,omitempty"`
	Jammer        *Jammer `json:"jammer,omitempty" yaml:"jammer,omitempty"`
}

func (sc *Scenario) Validate() error {
	if sc == nil {
		return errors.New("scenario is nil")
	}
	if strings.TrimSpace(sc.Name) == "" {
		return errors.New("scenario name is required")
	}
	if len(sc.Waypoints) == 0 {
		return fmt.Errorf("scenario %s: at least one waypoint is required", sc.Name)
	}
	if sc.Speed <= 0 {
		return fmt.Errorf("scenario %s: speed must be positive", sc.Name)
	}
	if sc.TickInterval <= 0 {
		return fmt.Errorf("scenario %s: tick interval must be positive", sc.Name)
	}
	if len(sc.Rules) == 0 || sc.Rules[0].Phase != PhaseNormalFlight {
		return fmt.Errorf("scenario %s: first rule must be %s", sc.Name, PhaseNormalFlight)
	}
	for i := 1; i < len(sc.Rules); i++ {
		prev, cur := sc.Rules[i-1], sc.Rules[i]
		if !cur.Phase.Valid() || cur.Phase <= prev.Phase {
			return fmt.Errorf("scenario %s: rule %d phase %s must follow %s", sc.Name, i, cur.Phase, prev.Phase)
		}
		if i > 1 && cur.AfterMs <= prev.AfterMs {
			return fmt.Errorf("scenario %s: rule %d threshold %dms must exceed %dms", sc.Name, i, cur.AfterMs, prev.AfterMs)
		}
	}
	for i, rule := range sc.Telemetry {
		if rule.From > rule.To {
			return fmt.Errorf("scenario %s: telemetry rule %d has empty phase range", sc.Name, i)
		}
		if rule.Subject != SubjectActual && rule.Subject != SubjectGhost {
			return fmt.Errorf("scenario %s: telemetry rule %d subject %q", sc.Name, i, rule.Subject)
		}
	}
	// Every run has to end.
	if _, ok := sc.rule(PhaseCompleted); !ok {
		return fmt.Errorf("scenario %s: a %s rule is required", sc.Name, PhaseCompleted)
	}
	if sc.Jammer != nil && sc.Jammer.Max < 0 {
		return fmt.Errorf("scenario %s: jammer max must not be negative", sc.Name)
	}
	return nil
}

func (sc *Scenario) rule(p Phase) (PhaseRule, bool) {
	for _, r := range sc.Rules {
		if r.Phase == p {
			return r, true
		}
	}
	return PhaseRule{}, false
}

// Target returns the final mission waypoint.
func (sc *Scenario) Target() geom.Point {
	return sc.Waypoints[len(sc.Waypoints)-1]
}

// Clone returns a deep copy so callers can tweak a catalogue entry.
func (sc *Scenario) Clone() *Scenario {
	cp := *sc
	cp.Waypoints = append([]geom.Point(nil), sc.Waypoints...)
	cp.Rules = make([]PhaseRule, len(sc.Rules))
	for i, r := range sc.Rules {
		r.Reports = append([]Template(nil), r.Reports...)
		cp.Rules[i] = r
	}
	cp.Telemetry = append([]TelemetryRule(nil), sc.Telemetry...)
	if sc.Tower != nil {
		tower := *sc.Tower
		cp.Tower = &tower
	}
	if sc.GhostArrival != nil {
		arrival := *sc.GhostArrival
		cp.GhostArrival = &arrival
	}
	if sc.Jammer != nil {
		j := *sc.Jammer
		j.Phases = append([]Phase(nil), sc.Jammer.Phases...)
		cp.Jammer = &j
	}
	return &cp
}

// FormatCoords renders a point rounded to whole units, e.g. (50, 325).
func FormatCoords(p geom.Point) string {
	return fmt.Sprintf("(%d, %d)", roundInt(p.X), roundInt(p.Y))
}

// roundInt rounds half up, so -2.5 becomes -2.
func roundInt(v float64) int {
	return int(math.Floor(v + 0.5))
}

func (sc *Scenario) expand(t Template, s State) string {
	return sc.expandFor(t, s, SubjectActual)
}

// expandFor resolves {pos} and {wp} against the subject's drone.
func (sc *Scenario) expandFor(t Template, s State, subject Subject) string {
	e := s.Actual
	if subject == SubjectGhost {
		e = s.Ghost
	}
	r := strings.NewReplacer(
		"{pos}", FormatCoords(e.Position),
		"{wp}", fmt.Sprint(e.Waypoint),
		"{actual}", FormatCoords(s.Actual.Position),
		"{ghost}", FormatCoords(s.Ghost.Position),
		"{actual_wp}", fmt.Sprint(s.Actual.Waypoint),
		"{ghost_wp}", fmt.Sprint(s.Ghost.Waypoint),
		"{target}", FormatCoords(sc.Target()),
		"{adversary}", FormatCoords(sc.Adversary),
		"{waypoints}", fmt.Sprint(len(sc.Waypoints)),
	)
	return r.Replace(t.Message)
}
