package hubrecovery

import (
	"errors"
	"fmt"
	"sync"
)

// HubState is the state of the ACM hub pair during a hub recovery.
type HubState string

// Hub states.
const (
	HubActive    HubState = "Active"
	HubDown      HubState = "Down"
	HubRestoring HubState = "Restoring"
)

// ErrInvalidTransition is returned when a hub recovery step is run out of order.
var ErrInvalidTransition = errors.New("invalid hub state transition")

var allowedTransitions = map[HubState]HubState{
	HubActive:    HubDown,
	HubDown:      HubRestoring,
	HubRestoring: HubActive,
}

// StateMachine tracks the hub state. It is safe for concurrent use.
type StateMachine struct {
	mutex sync.Mutex
	state HubState
}

// NewStateMachine returns a StateMachine in HubActive.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: HubActive}
}

// State returns the current hub state.
func (machine *StateMachine) State() HubState {
	machine.mutex.Lock()
	defer machine.mutex.Unlock()

	return machine.state
}

// Transition moves the machine to next. Only Active to Down, Down to Restoring and Restoring to Active are allowed.
func (machine *StateMachine) Transition(next HubState) error {
	machine.mutex.Lock()
	defer machine.mutex.Unlock()

	if allowedTransitions[machine.state] != next {
		return fmt.Errorf("hub cannot go from %s to %s: %w", machine.state, next, ErrInvalidTransition)
	}

	machine.state = next

	return nil
}
