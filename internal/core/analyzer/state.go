package analyzer

import (
	"strings"

	perr "constkit/internal/platform/errors"
)

// State is the review state of an occurrence
type State string

// DISCOVERED -> REVIEWED -> APPLIED | REJECTED
const (
	StateDiscovered State = "DISCOVERED"
	StateReviewed   State = "REVIEWED"
	StateApplied    State = "APPLIED"
	StateRejected   State = "REJECTED"
)

// ErrInvalidTransition means the state machine does not allow the move
var ErrInvalidTransition = perr.New(perr.ErrorCodeConflict, "invalid review transition")

// ErrUnknownState means a state name did not parse
var ErrUnknownState = perr.New(perr.ErrorCodeInvalidArgument, "unknown review state")

var transitions = map[State][]State{
	StateDiscovered: {StateReviewed},
	StateReviewed:   {StateApplied, StateRejected},
}

// ParseState parses a state name case-insensitively
func ParseState(s string) (State, error) {
	st := State(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StateDiscovered, StateReviewed, StateApplied, StateRejected:
		return st, nil
	}
	return "", perr.Detail(ErrUnknownState, "%q", s)
}

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool { return s == StateApplied || s == StateRejected }

// CanTransition reports whether s -> to is allowed
func (s State) CanTransition(to State) bool {
	for _, x := range transitions[s] {
		if x == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to
func Transition(from, to State) error {
	if !from.CanTransition(to) {
		return perr.Detail(ErrInvalidTransition, "%s -> %s", from, to)
	}
	return nil
}
