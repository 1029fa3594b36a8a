package state

// validTransitions contains the permitted non-emergency transitions in the
// enrollment FSM. Returning to idle is always allowed (user cancel).
var validTransitions = map[State][]State{
	StateIdle: {
		StateEnrollName,
	},
	StateEnrollName: {
		StateEnrollEmail,
	},
	StateEnrollEmail: {
		StateEnrollDiet,
		StateEnrollName,
	},
	StateEnrollDiet: {
		StateEnrollDays,
	},
	StateEnrollDays: {
		// day toggles re-save the step's context without leaving it
		StateEnrollDays,
		StateIdle,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if to == StateError || to == StateIdle {
		return true
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}
