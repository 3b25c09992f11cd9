package sim

import (
	"fmt"
	"time"
)

// Kind classifies a footprint the way the operator console colours it.
type Kind string

const (
	KindAuth   Kind = "AUTH"
	KindWarn   Kind = "WARN"
	KindAttack Kind = "ATTACK"
	KindSpoof  Kind = "SPOOF"
)

func (k Kind) Valid() bool {
	switch k {
	case KindAuth, KindWarn, KindAttack, KindSpoof:
		return true
	}
	return false
}

func (k *Kind) UnmarshalText(text []byte) error {
	v := Kind(text)
	if !v.Valid() {
		return fmt.Errorf("unknown footprint kind %q", string(text))
	}
	*k = v
	return nil
}

// Category records why a footprint was emitted.
type Category string

const (
	CategoryLifecycle  Category = "lifecycle"
	CategoryTransition Category = "transition"
	CategoryTelemetry  Category = "telemetry"
	CategoryReport     Category = "report"
)

// TimestampLayout matches a 24h wall-clock time, e.g. 14:03:27.
const TimestampLayout = "15:04:05"

type Footprint struct {
	Kind      Kind     `json:"type" msgpack:"type"`
	Category  Category `json:"category" msgpack:"category"`
	Message   string   `json:"message" msgpack:"message"`
	Timestamp string   `json:"timestamp" msgpack:"timestamp"`
	SimTimeMs int64    `json:"simTimeMs" msgpack:"simTimeMs"`
}

// FootprintLog is an append-only sequence. Emit never mutates the backing
// array of an earlier log value, so snapshots sharing a prefix stay intact.
type FootprintLog struct {
	entries []Footprint
}

func (l FootprintLog) Emit(now time.Time, simTimeMs int64, kind Kind, category Category, message string) FootprintLog {
	entry := Footprint{
		Kind:      kind,
		Category:  category,
		Message:   message,
		Timestamp: now.Format(TimestampLayout),
		SimTimeMs: simTimeMs,
	}
	n := len(l.entries)
	next := make([]Footprint, n, n+1)
	copy(next, l.entries)
	return FootprintLog{entries: append(next, entry)}
}

func (l FootprintLog) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the log in append order.
func (l FootprintLog) Entries() []Footprint {
	out := make([]Footprint, len(l.entries))
	copy(out, l.entries)
	return out
}

// At returns the entry at i; out-of-range indices are clamped to the
// nearest entry, and an empty log yields false.
func (l FootprintLog) At(i int) (Footprint, bool) {
	if len(l.entries) == 0 {
		return Footprint{}, false
	}
	if i < 0 {
		i = 0
	}
	if i >= len(l.entries) {
		i = len(l.entries) - 1
	}
	return l.entries[i], true
}

// Since returns the entries appended after the first n.
func (l FootprintLog) Since(n int) []Footprint {
	if n < 0 {
		n = 0
	}
	if n >= len(l.entries) {
		return nil
	}
	out := make([]Footprint, len(l.entries)-n)
	copy(out, l.entries[n:])
	return out
}

// Count returns the number of entries in the given category.
func (l FootprintLog) Count(category Category) int {
	count := 0
	for _, e := range l.entries {
		if e.Category == category {
			count++
		}
	}
	return count
}
