package transition

import (
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/zonewatch/internal/core/domain"
)

// State is the per-zone tracking state, derived solely from ActiveEntry.
type State string

const (
	StateOutside State = "outside"
	StateInside  State = "inside"
)

// Source names the trigger site of a transition.
type Source string

const (
	SourceEvent     Source = "event"
	SourceReconcile Source = "reconcile"
)

// ValidTransitions defines allowed state transitions.
var ValidTransitions = map[State][]State{
	StateOutside: {StateInside},
	StateInside:  {StateOutside},
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to State) bool {
	validTargets, ok := ValidTransitions[from]
	if !ok {
		return false
	}

	for _, target := range validTargets {
		if target == to {
			return true
		}
	}
	return false
}

// StateOf derives the state of a zone.
func StateOf(z *domain.Zone) State {
	if z.Inside() {
		return StateInside
	}
	return StateOutside
}

// Transition represents an applied state change.
type Transition struct {
	ZoneID   uuid.UUID     `json:"zone_id"`
	ZoneName string        `json:"zone_name"`
	From     State         `json:"from"`
	To       State         `json:"to"`
	Source   Source        `json:"source"`
	At       time.Time     `json:"at"`
	Duration time.Duration `json:"duration,omitempty"`
	// Logged is false for exits discarded by the minimum visit duration.
	Logged bool `json:"logged"`
}

// IsValid returns true if this transition is allowed by the state machine.
func (t Transition) IsValid() bool {
	return CanTransition(t.From, t.To)
}

// StateDescription returns a human-readable description of a state.
func StateDescription(s State) string {
	switch s {
	case StateOutside:
		return "Outside - no visit in progress"
	case StateInside:
		return "Inside - visit in progress, tracking time"
	default:
		return "Unknown state"
	}
}
