package order

import (
	"fmt"
	"slices"
)

// State is a step of one checkout attempt.
type State int

// Checkout steps in their only legal order.
const (
	StateValidating State = iota
	StateStockChecking
	StatePersisting
	StateReservationWriting
	StateCompleted
	StateAborted
)

var stateNames = map[State]string{
	StateValidating:         "validating",
	StateStockChecking:      "stock_checking",
	StatePersisting:         "persisting",
	StateReservationWriting: "reservation_writing",
	StateCompleted:          "completed",
	StateAborted:            "aborted",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var transitions = map[State][]State{
	StateValidating:         {StateStockChecking},
	StateStockChecking:      {StatePersisting, StateValidating, StateAborted},
	StatePersisting:         {StateReservationWriting, StateAborted},
	StateReservationWriting: {StateCompleted, StateAborted},
}

// CanTransition reports whether a checkout may move from s to next.
func (s State) CanTransition(next State) bool {
	return slices.Contains(transitions[s], next)
}

// attempt tracks the state of one checkout.
type attempt struct {
	state State
	trail []State
}

func newAttempt() *attempt {
	return &attempt{state: StateValidating, trail: []State{StateValidating}}
}

func (a *attempt) advance(next State) error {
	if !a.state.CanTransition(next) {
		return fmt.Errorf("illegal checkout transition %s -> %s", a.state, next)
	}
	a.state = next
	a.trail = append(a.trail, next)
	return nil
}
