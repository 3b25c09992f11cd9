package sim

import (
	"time"

	"github.com/google/uuid"

	"drone-spoof/internal/geom"
)

// AdvancePhase maps elapsed simulated time to the phase the scenario
// should be in. Rules are ordered by threshold, so the last one passed wins.
func AdvancePhase(sc *Scenario, elapsedMs int64) Phase {
	phase := PhaseNormalFlight
	for i, r := range sc.Rules {
		if i == 0 {
			continue
		}
		if elapsedMs > r.AfterMs {
			phase = r.Phase
		}
	}
	return phase
}

func NewState(sc *Scenario) State {
	return State{
		Scenario: sc.Name,
		Phase:    PhaseInactive,
		Actual:   newEntity(sc.Start),
		Ghost:    newEntity(sc.Start),
		Status:   sc.IdleStatus,
	}
}

// Reset discards the run, whatever phase it reached.
func Reset(sc *Scenario) State {
	return NewState(sc)
}

// Start begins a run from INACTIVE. Any other phase is returned as is,
// apart from resuming playback of a paused run.
func Start(sc *Scenario, s State, now time.Time) State {
	switch {
	case s.Phase == PhaseInactive:
		s.RunID = uuid.NewString()
		s.Playing = true
		return enter(sc, s, PhaseNormalFlight, now)
	case s.Phase.Running() && !s.Playing:
		s.Playing = true
		s.Footprints = s.Footprints.Emit(now, s.ElapsedMs, KindAuth, CategoryLifecycle, "Simulation resumed.")
	}
	return s
}

// Pause stops the clock without leaving the current phase.
func Pause(s State, now time.Time) State {
	if !s.Playing {
		return s
	}
	s.Playing = false
	s.Footprints = s.Footprints.Emit(now, s.ElapsedMs, KindWarn, CategoryLifecycle, "Simulation paused.")
	return s
}

// Step advances the run by one tick interval.
func Step(sc *Scenario, s State, now time.Time) State {
	if !s.Playing || !s.Phase.Running() {
		return s
	}
	s.ElapsedMs += sc.TickInterval.Milliseconds()
	s = enter(sc, s, AdvancePhase(sc, s.ElapsedMs), now)
	if s.Phase == PhaseCompleted {
		return s
	}

	s = moveGhost(sc, s, now)
	s = moveActual(sc, s)
	if sc.Jammer.active(s.Phase) {
		s.JammerRadius = geom.Clamp(s.JammerRadius+sc.Jammer.Growth, 0, sc.Jammer.Max)
	}
	s = emitTelemetry(sc, s, now)

	if sc.ArrivalRadius > 0 && geom.Distance(s.Ghost.Position, sc.Target()) < sc.ArrivalRadius {
		s = enter(sc, s, PhaseCompleted, now)
	}
	return s
}

// Simulate runs a scenario headless until it completes or maxTicks steps
// have been taken. The first state returned is the started run.
func Simulate(sc *Scenario, clock Clock, maxTicks int) []State {
	s := Start(sc, NewState(sc), clock.Now())
	states := []State{s}
	for i := 0; i < maxTicks && s.Phase.Running(); i++ {
		s = Step(sc, s, clock.Now())
		states = append(states, s)
	}
	return states
}

// enter walks every rule between the current phase and target so each
// phase entered gets exactly one transition footprint.
func enter(sc *Scenario, s State, target Phase, now time.Time) State {
	for _, r := range sc.Rules {
		if r.Phase <= s.Phase || r.Phase > target {
			continue
		}
		s.Phase = r.Phase
		s.Status = r.Status
		s.Footprints = s.Footprints.Emit(now, s.ElapsedMs, r.Footprint.Kind, CategoryTransition, sc.expand(r.Footprint, s))
		for _, report := range r.Reports {
			s.Footprints = s.Footprints.Emit(now, s.ElapsedMs, report.Kind, CategoryReport, sc.expand(report, s))
		}
	}
	if s.Phase >= PhaseHijacked {
		s.Diverted = true
	}
	if s.Phase == PhaseCompleted {
		s.Playing = false
	}
	return s
}

// waypointTarget clamps the index so a finished entity settles on the
// last waypoint.
func waypointTarget(sc *Scenario, e Entity) geom.Point {
	i := e.Waypoint
	if i >= len(sc.Waypoints) {
		i = len(sc.Waypoints) - 1
	}
	return sc.Waypoints[i]
}

// followWaypoints moves e one step along the mission and advances its
// waypoint index by at most one.
func followWaypoints(sc *Scenario, e Entity) (Entity, bool) {
	target := waypointTarget(sc, e)
	e = e.moveTo(geom.MoveTowards(e.Position, target, sc.Speed))
	if e.Waypoint < len(sc.Waypoints) && geom.Distance(e.Position, target) <= sc.Speed {
		e.Waypoint++
		return e, true
	}
	return e, false
}

// moveGhost keeps the reported drone on the mission plan in every phase.
func moveGhost(sc *Scenario, s State, now time.Time) State {
	reached := s.Ghost.Waypoint
	ghost, arrived := followWaypoints(sc, s.Ghost)
	if arrived && s.Diverted && sc.GhostArrival != nil {
		at := s
		at.Ghost = ghost
		at.Ghost.Waypoint = reached
		s.Footprints = s.Footprints.Emit(now, s.ElapsedMs, sc.GhostArrival.Kind, CategoryReport, sc.expand(*sc.GhostArrival, at))
	}
	s.Ghost = ghost
	return s
}

func moveActual(sc *Scenario, s State) State {
	if s.Diverted {
		s.Actual = s.Actual.moveTo(geom.MoveTowards(s.Actual.Position, sc.Adversary, sc.Speed))
		return s
	}
	s.Actual, _ = followWaypoints(sc, s.Actual)
	return s
}

func emitTelemetry(sc *Scenario, s State, now time.Time) State {
	second := s.ElapsedMs / 1000
	if second <= s.TelemetrySecond {
		return s
	}
	s.TelemetrySecond = second
	for _, rule := range sc.Telemetry {
		if s.Phase < rule.From || s.Phase > rule.To {
			continue
		}
		s.Footprints = s.Footprints.Emit(now, s.ElapsedMs, rule.Template.Kind, CategoryTelemetry, sc.expandFor(rule.Template, s, rule.Subject))
	}
	return s
}
