// Package zone runs the interactive restricted-airspace variant: an operator
// steers a drone that gets spoofed out of the danger circle and walked into
// the safe circle, where the defence system neutralizes it.
package zone

import (
	"fmt"
	"strings"
	"time"

	"drone-spoof/internal/geom"
	"drone-spoof/internal/sim"
)

const (
	statusIdle        = "Use arrow keys or WASD to move the drone."
	statusWarning     = "Approaching restricted airspace..."
	statusSpoofed     = "Spoof detected: moving out of danger zone..."
	statusNeutralized = "Drone neutralized by defense system."
)

type Mode int

const (
	ModeLive Mode = iota
	ModeWarning
	ModeSpoofed
	ModeNeutralized
)

func (m Mode) String() string {
	switch m {
	case ModeLive:
		return "LIVE"
	case ModeWarning:
		return "WARNING"
	case ModeSpoofed:
		return "SPOOFED"
	case ModeNeutralized:
		return "NEUTRALIZED"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Locked reports whether move commands are ignored.
func (m Mode) Locked() bool {
	return m == ModeSpoofed || m == ModeNeutralized
}

type Size struct {
	Width  float64 `json:"width" yaml:"width" msgpack:"width"`
	Height float64 `json:"height" yaml:"height" msgpack:"height"`
}

// Config describes the arena. Positions are drone centres.
type Config struct {
	World         Size            `json:"world" yaml:"world"`
	Danger        geom.Circle     `json:"danger" yaml:"danger"`
	WarningBuffer float64         `json:"warning_buffer" yaml:"warning_buffer"`
	Safe          geom.Circle     `json:"safe" yaml:"safe"`
	Drone         Size            `json:"drone" yaml:"drone"`
	Start         geom.Point      `json:"start" yaml:"start"`
	MoveStep      float64         `json:"move_step" yaml:"move_step"`
	AnimStep      float64         `json:"anim_step" yaml:"anim_step"`
	TickInterval  time.Duration   `json:"tick_interval" yaml:"tick_interval"`
	ResetAfter    time.Duration   `json:"reset_after" yaml:"reset_after"`
	Arc           geom.ArcOptions `json:"-" yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		World:         Size{Width: 720, Height: 520},
		Danger:        geom.Circle{Center: geom.Point{X: 420, Y: 200}, Radius: 70},
		WarningBuffer: 90,
		Safe:          geom.Circle{Center: geom.Point{X: 100, Y: 380}, Radius: 48},
		Drone:         Size{Width: 28, Height: 28},
		Start:         geom.Point{X: 54, Y: 54},
		MoveStep:      10,
		AnimStep:      6,
		TickInterval:  16 * time.Millisecond,
		ResetAfter:    1400 * time.Millisecond,
		Arc:           geom.DefaultArcOptions(),
	}
}

func (c Config) warningRing() geom.Circle {
	return c.Danger.Grow(c.WarningBuffer)
}

// inWarningOnly is true between the danger boundary and the outer ring.
func (c Config) inWarningOnly(p geom.Point) bool {
	return !c.Danger.Contains(p) && c.warningRing().Contains(p)
}

func (c Config) clampToWorld(p geom.Point) geom.Point {
	hw, hh := c.Drone.Width/2, c.Drone.Height/2
	return geom.Point{
		X: geom.Clamp(p.X, hw, c.World.Width-hw),
		Y: geom.Clamp(p.Y, hh, c.World.Height-hh),
	}
}

// Session is one attempt at the arena. Like sim.State it is a value;
// every operation returns the next session.
type Session struct {
	Position geom.Point
	Mode     Mode
	// Route holds the remaining points of the forced flight.
	Route         []geom.Point
	NeutralizedAt time.Time
	Status        string
	Footprints    sim.FootprintLog
}

func NewSession(cfg Config) Session {
	return Session{
		Position: cfg.Start,
		Mode:     ModeLive,
		Status:   statusIdle,
	}
}

// DirectionForKey maps arrow keys and WASD to a unit move.
func DirectionForKey(key string) (dx, dy int, ok bool) {
	switch strings.ToLower(key) {
	case "arrowup", "w":
		return 0, -1, true
	case "arrowdown", "s":
		return 0, 1, true
	case "arrowleft", "a":
		return -1, 0, true
	case "arrowright", "d":
		return 1, 0, true
	}
	return 0, 0, false
}

func sign(v int) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Move steps the drone one MoveStep in the given direction. Only the sign
// of dx and dy matters.
func Move(cfg Config, s Session, dx, dy int, now time.Time) Session {
	if s.Mode.Locked() || (dx == 0 && dy == 0) {
		return s
	}
	next := cfg.clampToWorld(s.Position.Add(geom.Point{X: sign(dx) * cfg.MoveStep, Y: sign(dy) * cfg.MoveStep}))

	if cfg.Danger.Contains(next) {
		return startSpoof(cfg, s, next, now)
	}

	warn := cfg.inWarningOnly(next)
	switch {
	case warn && s.Mode != ModeWarning:
		s.Mode = ModeWarning
		s.Status = statusWarning
		s.Footprints = s.Footprints.Emit(now, 0, sim.KindWarn, sim.CategoryTransition,
			"Restricted airspace ahead at "+sim.FormatCoords(next))
	case !warn && s.Mode == ModeWarning:
		s.Mode = ModeLive
		s.Status = statusIdle
		s.Footprints = s.Footprints.Emit(now, 0, sim.KindAuth, sim.CategoryTransition, "Drone left the warning ring.")
	}

	s.Position = next
	if cfg.Safe.Contains(next) {
		return neutralize(s, now)
	}
	return s
}

// exitPoint sits just outside the danger circle along the line from its
// centre through p.
func exitPoint(cfg Config, p geom.Point, buffer float64) geom.Point {
	return cfg.Danger.Grow(buffer).EdgeToward(p)
}

func startSpoof(cfg Config, s Session, inside geom.Point, now time.Time) Session {
	opts := cfg.Arc.WithDefaults()
	exit := exitPoint(cfg, inside, opts.Buffer)
	route := append([]geom.Point{exit}, geom.ArcPath(exit, cfg.Danger, cfg.Safe, opts)...)

	s.Mode = ModeSpoofed
	s.Status = statusSpoofed
	s.Route = route
	s.Footprints = s.Footprints.Emit(now, 0, sim.KindAttack, sim.CategoryTransition,
		"Spoofed GNSS lock at "+sim.FormatCoords(inside)+". Navigation overridden.")
	s.Footprints = s.Footprints.Emit(now, 0, sim.KindSpoof, sim.CategoryReport,
		fmt.Sprintf("Rerouting via %s around the restricted zone (%d waypoints).", sim.FormatCoords(exit), len(route)))
	return s
}

func neutralize(s Session, now time.Time) Session {
	s.Mode = ModeNeutralized
	s.Route = nil
	s.NeutralizedAt = now
	s.Status = statusNeutralized
	s.Footprints = s.Footprints.Emit(now, 0, sim.KindAttack, sim.CategoryTransition,
		"Drone neutralized at "+sim.FormatCoords(s.Position))
	return s
}

// Tick advances the forced flight by one animation step, and restarts the
// session once a neutralized drone has been shown for ResetAfter.
func Tick(cfg Config, s Session, now time.Time) Session {
	switch s.Mode {
	case ModeSpoofed:
		if len(s.Route) == 0 {
			return neutralize(s, now)
		}
		target := s.Route[0]
		s.Position = geom.MoveTowards(s.Position, target, cfg.AnimStep)
		if s.Position == target {
			s.Route = s.Route[1:]
			if len(s.Route) == 0 {
				return neutralize(s, now)
			}
		}
	case ModeNeutralized:
		if now.Sub(s.NeutralizedAt) >= cfg.ResetAfter {
			return NewSession(cfg)
		}
	}
	return s
}

// Animating reports whether the session needs ticks.
func (s Session) Animating() bool {
	return s.Mode.Locked()
}

type View struct {
	Config     Config          `json:"layout" msgpack:"layout"`
	Position   geom.Point      `json:"position" msgpack:"position"`
	Mode       string          `json:"mode" msgpack:"mode"`
	Route      []geom.Point    `json:"route" msgpack:"route"`
	InDanger   bool            `json:"inDanger" msgpack:"inDanger"`
	InSafe     bool            `json:"inSafe" msgpack:"inSafe"`
	Status     string          `json:"status" msgpack:"status"`
	Footprints []sim.Footprint `json:"footprints" msgpack:"footprints"`
}

func (s Session) View(cfg Config) View {
	return View{
		Config:     cfg,
		Position:   s.Position,
		Mode:       s.Mode.String(),
		Route:      append([]geom.Point(nil), s.Route...),
		InDanger:   cfg.Danger.Contains(s.Position),
		InSafe:     cfg.Safe.Contains(s.Position),
		Status:     s.Status,
		Footprints: s.Footprints.Entries(),
	}
}
