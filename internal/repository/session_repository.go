package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
)

// ErrSessionNotPending indicates that the conditional resolve matched no
// pending row: the session is absent or was already resolved by the other
// trigger. Callers treat this as a benign no-op, never an error.
var ErrSessionNotPending = errors.New("session is not pending")

// SessionRepository persists registration sessions. All transitions out of
// the pending state go through Resolve, a compare-and-set conditioned on the
// prior state, which makes the reply-vs-timeout race safe.
type SessionRepository interface {
	// Create inserts a pending session, reporting false if one already exists
	// for (user, lunch date).
	Create(ctx context.Context, session *domain.RegistrationSession) (bool, error)
	// Resolve atomically moves the session from pending to the given terminal
	// state. Returns ErrSessionNotPending when the race was already won.
	Resolve(ctx context.Context, userID int64, date domain.LunchDate, state domain.SessionState, resolution bool) (*domain.RegistrationSession, error)
	// ResolveDefault atomically defaults a pending session, applying the
	// choice captured on the row at creation time.
	ResolveDefault(ctx context.Context, userID int64, date domain.LunchDate) (*domain.RegistrationSession, error)
	// ListPending returns every pending session, joined with the user's
	// Telegram identifier for restart recovery.
	ListPending(ctx context.Context) ([]domain.RegistrationSession, error)
	CountPending(ctx context.Context, date domain.LunchDate) (int, error)
	ExistsForDate(ctx context.Context, date domain.LunchDate) (bool, error)
}

type sessionRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSessionRepository creates a new SQL-backed session repository.
func NewSessionRepository(db *sql.DB, log *slog.Logger) SessionRepository {
	if log == nil {
		log = slog.Default()
	}

	return &sessionRepository{
		db:  db,
		log: log,
	}
}

// Create inserts the session, leaving an existing row untouched.
func (r *sessionRepository) Create(ctx context.Context, session *domain.RegistrationSession) (bool, error) {
	const query = `
		INSERT INTO registration_sessions (user_id, lunch_date, sent_at, due_at, default_choice, state)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		ON CONFLICT (user_id, lunch_date) DO NOTHING
		RETURNING id
	`

	row := r.db.QueryRowContext(
		ctx,
		query,
		session.UserID,
		session.LunchDate.Time(),
		session.SentAt,
		session.DueAt,
		session.DefaultChoice,
	)

	if err := row.Scan(&session.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}

		r.log.Error("failed to create session",
			slog.Int64("user_id", session.UserID),
			slog.String("lunch_date", session.LunchDate.String()),
			slog.Any("error", err),
		)
		return false, fmt.Errorf("insert session: %w", err)
	}

	session.State = domain.SessionPending
	return true, nil
}

// Resolve performs the single atomic transition out of pending. The WHERE
// clause on state is what guarantees exactly-once resolution: whichever of
// reply or timeout runs the statement second matches zero rows.
func (r *sessionRepository) Resolve(
	ctx context.Context,
	userID int64,
	date domain.LunchDate,
	state domain.SessionState,
	resolution bool,
) (*domain.RegistrationSession, error) {
	if !state.Terminal() {
		return nil, fmt.Errorf("resolve to non-terminal state %q", state)
	}

	const query = `
		UPDATE registration_sessions AS rs
		SET state = $1, resolution = $2, resolved_at = now()
		FROM users u
		WHERE u.id = rs.user_id
		  AND rs.user_id = $3
		  AND rs.lunch_date = $4
		  AND rs.state = 'pending'
		RETURNING rs.id, rs.user_id, u.telegram_id, rs.lunch_date, rs.sent_at, rs.due_at,
		          rs.default_choice, rs.state, rs.resolution, rs.resolved_at
	`

	row := r.db.QueryRowContext(ctx, query, string(state), resolution, userID, date.Time())

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotPending
		}

		r.log.Error("failed to resolve session",
			slog.Int64("user_id", userID),
			slog.String("lunch_date", date.String()),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	return session, nil
}

// ResolveDefault moves a pending session to defaulted, copying the stored
// default choice into the resolution. Same CAS shape as Resolve.
func (r *sessionRepository) ResolveDefault(
	ctx context.Context,
	userID int64,
	date domain.LunchDate,
) (*domain.RegistrationSession, error) {
	const query = `
		UPDATE registration_sessions AS rs
		SET state = 'defaulted', resolution = rs.default_choice, resolved_at = now()
		FROM users u
		WHERE u.id = rs.user_id
		  AND rs.user_id = $1
		  AND rs.lunch_date = $2
		  AND rs.state = 'pending'
		RETURNING rs.id, rs.user_id, u.telegram_id, rs.lunch_date, rs.sent_at, rs.due_at,
		          rs.default_choice, rs.state, rs.resolution, rs.resolved_at
	`

	row := r.db.QueryRowContext(ctx, query, userID, date.Time())

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotPending
		}

		r.log.Error("failed to default session",
			slog.Int64("user_id", userID),
			slog.String("lunch_date", date.String()),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("default session: %w", err)
	}

	return session, nil
}

// ListPending returns pending sessions across all dates for restart recovery.
func (r *sessionRepository) ListPending(ctx context.Context) ([]domain.RegistrationSession, error) {
	const query = `
		SELECT rs.id, rs.user_id, u.telegram_id, rs.lunch_date, rs.sent_at, rs.due_at,
		       rs.default_choice, rs.state, rs.resolution, rs.resolved_at
		FROM registration_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.state = 'pending'
		ORDER BY rs.due_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.log.Error("failed to list pending sessions", slog.Any("error", err))
		return nil, fmt.Errorf("list pending sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.RegistrationSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending session: %w", err)
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending sessions: %w", err)
	}

	return sessions, nil
}

// CountPending returns the number of unresolved sessions for a date.
func (r *sessionRepository) CountPending(ctx context.Context, date domain.LunchDate) (int, error) {
	const query = `SELECT COUNT(*) FROM registration_sessions WHERE lunch_date = $1 AND state = 'pending'`

	var count int
	if err := r.db.QueryRowContext(ctx, query, date.Time()).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending sessions: %w", err)
	}

	return count, nil
}

// ExistsForDate reports whether any session was ever created for the date,
// which is how a restarted clock avoids prompting the same day twice.
func (r *sessionRepository) ExistsForDate(ctx context.Context, date domain.LunchDate) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM registration_sessions WHERE lunch_date = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, date.Time()).Scan(&exists); err != nil {
		return false, fmt.Errorf("check sessions for date: %w", err)
	}

	return exists, nil
}

func scanSession(row rowScanner) (*domain.RegistrationSession, error) {
	var (
		session    domain.RegistrationSession
		rawDate    sql.NullTime
		rawState   string
		resolution sql.NullBool
		resolvedAt sql.NullTime
	)

	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TelegramID,
		&rawDate,
		&session.SentAt,
		&session.DueAt,
		&session.DefaultChoice,
		&rawState,
		&resolution,
		&resolvedAt,
	); err != nil {
		return nil, err
	}

	if rawDate.Valid {
		session.LunchDate = domain.LunchDateOf(rawDate.Time)
	}
	session.State = domain.SessionState(rawState)
	session.Resolution = resolution.Bool
	if resolvedAt.Valid {
		session.ResolvedAt = resolvedAt.Time
	}

	return &session, nil
}
