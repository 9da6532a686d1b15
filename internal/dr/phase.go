package dr

// Phase is the status.phase of a DRPlacementControl.
type Phase string

// Phases reported by the DR hub operator.
const (
	PhaseEmpty       Phase = ""
	PhaseInitiating  Phase = "Initiating"
	PhaseDeployed    Phase = "Deployed"
	PhaseFailingOver Phase = "FailingOver"
	PhaseFailedOver  Phase = "FailedOver"
	PhaseRelocating  Phase = "Relocating"
	PhaseRelocated   Phase = "Relocated"
	PhaseWaitForUser Phase = "WaitForUser"
)

// Action is the spec.action of a DRPlacementControl.
type Action string

// Actions accepted by the DR hub operator.
const (
	ActionFailover Action = "Failover"
	ActionRelocate Action = "Relocate"
)

// IsStable reports whether no transition is running in phase.
func IsStable(phase Phase) bool {
	switch phase {
	case PhaseDeployed, PhaseFailedOver, PhaseRelocated:
		return true
	default:
		return false
	}
}

// IsInFlight reports whether a transition is running in phase. A new action must not be requested then.
func IsInFlight(phase Phase) bool {
	switch phase {
	case PhaseInitiating, PhaseFailingOver, PhaseRelocating:
		return true
	default:
		return false
	}
}

// targetPhase returns the phase an action converges to.
func targetPhase(action Action) Phase {
	if action == ActionFailover {
		return PhaseFailedOver
	}

	return PhaseRelocated
}
