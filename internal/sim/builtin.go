package sim

import (
	"sort"
	"time"

	"drone-spoof/internal/geom"
)

const (
	ScenarioGNSS      = "gnss"
	ScenarioInjection = "injection"

	defaultTick  = 50 * time.Millisecond
	defaultSpeed = 2.0
)

// BuiltIn returns the stock attack scenarios keyed by name.
func BuiltIn() map[string]*Scenario {
	return map[string]*Scenario{
		ScenarioGNSS:      gnssSpoofing(),
		ScenarioInjection: dataInjection(),
	}
}

// Lookup returns a private copy of a built-in scenario.
func Lookup(name string) (*Scenario, error) {
	sc, ok := BuiltIn()[name]
	if !ok {
		return nil, ErrUnknownScenario
	}
	return sc, nil
}

// Names returns the catalogue keys sorted.
func Names(catalog map[string]*Scenario) []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func gnssSpoofing() *Scenario {
	tower := geom.Point{X: 500, Y: 620}
	return &Scenario{
		Name:        ScenarioGNSS,
		Title:       "GNSS Spoofing Attack Vector",
		Description: "A terrestrial transmitter jams the satellite signals, then feeds counterfeit GPS data so the drone flies to the attacker's point while reporting the planned route.",
		IdleStatus:  "Start the simulation to begin the GNSS spoofing attack sequence.",
		Start:       geom.Point{X: 50, Y: 325},
		Waypoints:   []geom.Point{{X: 920, Y: 80}},
		Adversary:   geom.Point{X: 920, Y: 550},
		Tower:       &tower,

		Speed:        defaultSpeed,
		TickInterval: defaultTick,

		Rules: []PhaseRule{
			{
				Phase:     PhaseNormalFlight,
				Status:    "Phase 1: Drone is flying normally, following authentic satellite signals.",
				Footprint: Template{Kind: KindAuth, Message: "Simulation initiated. Drone systems nominal."},
				Reports: []Template{
					{Kind: KindAuth, Message: "Flight plan loaded. Target destination: {target}"},
				},
			},
			{
				Phase:     PhaseJamming,
				AfterMs:   3000,
				Status:    "Phase 2: Attacker is overpowering satellite signals with a stronger radio signal.",
				Footprint: Template{Kind: KindWarn, Message: "Multiple satellite signals lost. Searching for signal..."},
			},
			{
				Phase:     PhaseSpoofing,
				AfterMs:   6000,
				Status:    "Phase 3: Drone's navigation is compromised. Fake GPS data is being injected.",
				Footprint: Template{Kind: KindAttack, Message: "Strong signal lock acquired from terrestrial source. Re-calibrating..."},
			},
			{
				Phase:     PhaseHijacked,
				AfterMs:   8000,
				Status:    "Phase 4: Drone is now fully hijacked, its path diverging towards a new target.",
				Footprint: Template{Kind: KindSpoof, Message: "Navigation re-established. Resuming flight to target."},
			},
			{
				// Reached through ArrivalRadius rather than elapsed time.
				Phase:     PhaseCompleted,
				AfterMs:   1 << 40,
				Status:    "Attack Complete: The drone believes it has arrived at the target, but it has been successfully diverted.",
				Footprint: Template{Kind: KindSpoof, Message: "Spoofed Destination Reached: {ghost}"},
				Reports: []Template{
					{Kind: KindAttack, Message: "ACTUAL DRONE LOCATION: {actual}"},
				},
			},
		},
		Telemetry: []TelemetryRule{
			{
				From:     PhaseNormalFlight,
				To:       PhaseNormalFlight,
				Subject:  SubjectActual,
				Template: Template{Kind: KindAuth, Message: "Position Verified: {pos}"},
			},
			{
				From:     PhaseSpoofing,
				To:       PhaseHijacked,
				Subject:  SubjectGhost,
				Template: Template{Kind: KindSpoof, Message: "[FAKE TELEMETRY] Position: {pos}"},
			},
		},
		ArrivalRadius: 10,
		Jammer: &Jammer{
			Origin: tower,
			Growth: 4,
			Max:    300,
			Phases: []Phase{PhaseJamming, PhaseSpoofing},
		},
	}
}

func dataInjection() *Scenario {
	tower := geom.Point{X: 850, Y: 325}
	return &Scenario{
		Name:        ScenarioInjection,
		Title:       "Data & Command Injection",
		Description: "An attacker on the C2 link injects command overrides; the drone diverts while spoofed telemetry keeps reporting the mission plan.",
		IdleStatus:  "Use the playback controls to begin the simulation.",
		Start:       geom.Point{X: 50, Y: 100},
		Waypoints: []geom.Point{
			{X: 300, Y: 100},
			{X: 500, Y: 300},
			{X: 300, Y: 500},
			{X: 50, Y: 500},
			{X: 50, Y: 100},
		},
		Adversary: geom.Point{X: 800, Y: 500},
		Tower:     &tower,

		Speed:        defaultSpeed,
		TickInterval: defaultTick,

		Rules: []PhaseRule{
			{
				Phase:     PhaseNormalFlight,
				Status:    "Phase 1: Drone is executing its mission plan over an authenticated link.",
				Footprint: Template{Kind: KindAuth, Message: "Simulation initiated. Drone systems nominal."},
				Reports: []Template{
					{Kind: KindAuth, Message: "Loaded mission plan with {waypoints} waypoints."},
				},
			},
			{
				Phase:     PhaseAttackInject,
				AfterMs:   5000,
				Status:    "Phase 2: Attacker is injecting malicious MAVLink commands.",
				Footprint: Template{Kind: KindAttack, Message: "Network intrusion detected. Injecting CMD_OVERRIDE..."},
			},
			{
				Phase:     PhaseHijacked,
				AfterMs:   8000,
				Status:    "Phase 3: Drone is following malicious commands. Attacker is spoofing telemetry.",
				Footprint: Template{Kind: KindSpoof, Message: "CMD_OVERRIDE ACK. Drone path diverted. Initiating telemetry spoof."},
			},
			{
				Phase:     PhaseCompleted,
				AfterMs:   15000,
				Status:    "Attack Complete: The drone is at the attacker's location, but the operator believes the mission is nominal.",
				Footprint: Template{Kind: KindAttack, Message: "ACTUAL DRONE LOCATION: {actual}"},
				Reports: []Template{
					{Kind: KindSpoof, Message: "[FAKE TELEMETRY] Arrived at Waypoint #{ghost_wp}."},
				},
			},
		},
		Telemetry: []TelemetryRule{
			{
				From:     PhaseNormalFlight,
				To:       PhaseNormalFlight,
				Subject:  SubjectActual,
				Template: Template{Kind: KindAuth, Message: "Telemetry: POS={pos}, WP_TGT={wp}"},
			},
			{
				From:     PhaseHijacked,
				To:       PhaseHijacked,
				Subject:  SubjectGhost,
				Template: Template{Kind: KindSpoof, Message: "[FAKE TELEMETRY] POS={pos}, WP_TGT={wp}"},
			},
		},
		GhostArrival: &Template{Kind: KindSpoof, Message: "[FAKE TELEMETRY] Arrived at Waypoint #{ghost_wp}. Proceeding to next."},
	}
}
