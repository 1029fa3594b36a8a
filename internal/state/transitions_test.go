package state

import "testing"

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{name: "idle to enroll name", from: StateIdle, to: StateEnrollName, expected: true},
		{name: "enroll name to enroll email", from: StateEnrollName, to: StateEnrollEmail, expected: true},
		{name: "enroll email to enroll diet", from: StateEnrollEmail, to: StateEnrollDiet, expected: true},
		{name: "enroll email back to enroll name", from: StateEnrollEmail, to: StateEnrollName, expected: true},
		{name: "enroll diet to enroll days", from: StateEnrollDiet, to: StateEnrollDays, expected: true},
		{name: "enroll days back to idle", from: StateEnrollDays, to: StateIdle, expected: true},
		{name: "enroll days day toggle loop", from: StateEnrollDays, to: StateEnrollDays, expected: true},
		{name: "idle to enroll email invalid", from: StateIdle, to: StateEnrollEmail, expected: false},
		{name: "enroll name to enroll days invalid", from: StateEnrollName, to: StateEnrollDays, expected: false},
		{name: "enroll days to enroll name invalid", from: StateEnrollDays, to: StateEnrollName, expected: false},
		{name: "unknown state to enroll name invalid", from: State("unknown"), to: StateEnrollName, expected: false},
		{name: "any state to idle emergency", from: State("whatever"), to: StateIdle, expected: true},
		{name: "any state to error emergency", from: StateEnrollDiet, to: StateError, expected: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := IsTransitionAllowed(tc.from, tc.to); actual != tc.expected {
				t.Errorf("IsTransitionAllowed(%s -> %s) = %t, expected %t", tc.from, tc.to, actual, tc.expected)
			}
		})
	}
}
