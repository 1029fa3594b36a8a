package state

import "time"

// State represents a finite-state machine state.
type State string

const (
	// StateIdle indicates that the bot is waiting for the next user command.
	StateIdle State = "idle"
	// StateEnrollName indicates that the user is entering their full name.
	StateEnrollName State = "enroll_name"
	// StateEnrollEmail indicates that the user is entering their email address.
	StateEnrollEmail State = "enroll_email"
	// StateEnrollDiet indicates that the user is picking a dietary preference.
	StateEnrollDiet State = "enroll_diet"
	// StateEnrollDays indicates that the user is selecting default lunch days.
	StateEnrollDays State = "enroll_days"
	// StateError indicates that the bot is in an error state and requires recovery.
	StateError State = "error"
)

// UserState captures the current FSM state for a Telegram user.
type UserState struct {
	UserID       int64                  `json:"user_id"`
	CurrentState State                  `json:"current_state"`
	Context      map[string]interface{} `json:"context"`
	UpdatedAt    time.Time              `json:"updated_at"`
}
