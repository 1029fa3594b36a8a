package domain

import "time"

// SessionState tracks the lifecycle of a registration session. Answered and
// defaulted are terminal; no session leaves a terminal state.
type SessionState string

const (
	SessionPending   SessionState = "pending"
	SessionAnswered  SessionState = "answered"
	SessionDefaulted SessionState = "defaulted"
)

// Terminal reports whether the state is final.
func (s SessionState) Terminal() bool {
	return s == SessionAnswered || s == SessionDefaulted
}

// RegistrationSession is the per-user-per-date unit of work tracking prompt
// delivery and resolution. At most one session exists per (user, lunch date).
type RegistrationSession struct {
	ID         int64
	UserID     int64
	TelegramID int64
	LunchDate  LunchDate
	SentAt     time.Time
	DueAt      time.Time
	// DefaultChoice is the resolution the timeout applies, computed from the
	// user's preferred days when the session is created. Capturing it up front
	// pins in-flight sessions against later preference or config changes.
	DefaultChoice bool
	State         SessionState
	Resolution    bool
	ResolvedAt    time.Time
}

// SessionKey identifies a session for timer bookkeeping.
type SessionKey struct {
	UserID    int64
	LunchDate LunchDate
}

// Key returns the session's timer key.
func (s *RegistrationSession) Key() SessionKey {
	return SessionKey{UserID: s.UserID, LunchDate: s.LunchDate}
}

// Override is the durable per-user-per-date attendance decision. Every
// resolution records one, so downstream consumers never recompute defaults.
type Override struct {
	ID        int64
	UserID    int64
	Date      LunchDate
	Attending bool
	CreatedAt time.Time
}

// CycleState tracks a lunch date as a whole: collecting while any session is
// pending, resolved once all are terminal, submitted after the order is filed.
type CycleState string

const (
	CycleCollecting CycleState = "collecting"
	CycleResolved   CycleState = "resolved"
	CycleSubmitted  CycleState = "submitted"
)

// LunchCycle is the per-date aggregate gating submission dispatch.
type LunchCycle struct {
	Date        LunchDate
	State       CycleState
	CreatedAt   time.Time
	ResolvedAt  time.Time
	SubmittedAt time.Time
}

// AttendanceEntry pairs an attending user with the dietary preference the
// submission agent needs.
type AttendanceEntry struct {
	FullName string
	Email    string
	Dietary  DietaryPreference
}
