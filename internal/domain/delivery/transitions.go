package delivery

import (
	"fmt"
	"strings"
)

// Transition is one allowed status change
type Transition struct {
	From Status
	To   Status
}

// forward lists the happy path in order. Any later status is reachable from
// an earlier one, and a non-terminal status may be set again to reassign.
var forward = []Status{
	StatusPending,
	StatusAssigned,
	StatusPickedUp,
	StatusInTransit,
	StatusDelivered,
}

// validTransitions is the strict state machine
var validTransitions = func() []Transition {
	var ts []Transition
	for i, from := range forward {
		if from.IsTerminal() {
			continue
		}
		for _, to := range forward[i:] {
			ts = append(ts, Transition{From: from, To: to})
		}
		ts = append(ts, Transition{From: from, To: StatusCancelled})
	}
	return ts
}()

var transitionMap = func() map[Transition]bool {
	m := make(map[Transition]bool, len(validTransitions))
	for _, t := range validTransitions {
		m[t] = true
	}
	return m
}()

// TransitionError is returned when a status change is not allowed
type TransitionError struct {
	From    Status
	To      Status
	Allowed []Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s → %s is not allowed. Valid transitions from %s are: %s",
		e.From, e.To, e.From, describe(e.Allowed))
}

// ValidTransitionsFrom returns every status reachable from status
func ValidTransitionsFrom(status Status) []Status {
	var nexts []Status
	for _, t := range validTransitions {
		if t.From == status {
			nexts = append(nexts, t.To)
		}
	}
	return nexts
}

// CanTransition checks a change against the strict state machine
func CanTransition(from, to Status) error {
	if transitionMap[Transition{From: from, To: to}] {
		return nil
	}
	return &TransitionError{From: from, To: to, Allowed: ValidTransitionsFrom(from)}
}

func describe(statuses []Status) string {
	if len(statuses) == 0 {
		return "none (terminal state)"
	}
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
