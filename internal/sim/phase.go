package sim

import "fmt"

// Phase is a stage of the scripted attack narrative. Values are ordered by
// narrative progression so phases compare with < and >=.
type Phase int

const (
	PhaseInactive Phase = iota
	PhaseNormalFlight
	PhaseJamming
	PhaseAttackInject
	PhaseSpoofing
	PhaseHijacked
	PhaseCompleted
)

var phaseNames = [...]string{
	PhaseInactive:     "INACTIVE",
	PhaseNormalFlight: "NORMAL_FLIGHT",
	PhaseJamming:      "JAMMING",
	PhaseAttackInject: "ATTACK_INJECT",
	PhaseSpoofing:     "SPOOFING",
	PhaseHijacked:     "HIJACKED",
	PhaseCompleted:    "COMPLETED",
}

// Phases lists every phase in order.
func Phases() []Phase {
	out := make([]Phase, 0, len(phaseNames))
	for p := PhaseInactive; p <= PhaseCompleted; p++ {
		out = append(out, p)
	}
	return out
}

func (p Phase) Valid() bool {
	return p >= PhaseInactive && p <= PhaseCompleted
}

func (p Phase) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Running reports whether the phase belongs to an in-progress run.
func (p Phase) Running() bool {
	return p > PhaseInactive && p < PhaseCompleted
}

func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), nil
		}
	}
	return PhaseInactive, fmt.Errorf("unknown phase %q", s)
}

func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid phase %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
