package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
)

// ErrOverrideNotFound indicates that no override exists for the key.
var ErrOverrideNotFound = errors.New("override not found")

// OverrideRepository persists per-user-per-date attendance decisions.
type OverrideRepository interface {
	// Upsert records the decision for (user, date). A later write for the same
	// key replaces the earlier one.
	Upsert(ctx context.Context, userID int64, date domain.LunchDate, attending bool) error
	Get(ctx context.Context, userID int64, date domain.LunchDate) (*domain.Override, error)
	// ListAttendees returns the attendance list for a date: every enrolled
	// user whose recorded decision is attending, with dietary preference.
	ListAttendees(ctx context.Context, date domain.LunchDate) ([]domain.AttendanceEntry, error)
}

type overrideRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewOverrideRepository creates a new SQL-backed override repository.
func NewOverrideRepository(db *sql.DB, log *slog.Logger) OverrideRepository {
	if log == nil {
		log = slog.Default()
	}

	return &overrideRepository{
		db:  db,
		log: log,
	}
}

// Upsert writes the decision, replacing any prior row for the same key.
func (r *overrideRepository) Upsert(ctx context.Context, userID int64, date domain.LunchDate, attending bool) error {
	const query = `
		INSERT INTO lunch_overrides (user_id, override_date, override_choice)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, override_date)
		DO UPDATE SET override_choice = EXCLUDED.override_choice
	`

	if _, err := r.db.ExecContext(ctx, query, userID, date.Time(), attending); err != nil {
		r.log.Error("failed to upsert override",
			slog.Int64("user_id", userID),
			slog.String("date", date.String()),
			slog.Any("error", err),
		)
		return fmt.Errorf("upsert override: %w", err)
	}

	return nil
}

// Get returns the recorded decision for (user, date).
func (r *overrideRepository) Get(ctx context.Context, userID int64, date domain.LunchDate) (*domain.Override, error) {
	const query = `
		SELECT id, user_id, override_date, override_choice, created_at
		FROM lunch_overrides
		WHERE user_id = $1 AND override_date = $2
	`

	var (
		override domain.Override
		rawDate  sql.NullTime
	)

	row := r.db.QueryRowContext(ctx, query, userID, date.Time())
	if err := row.Scan(&override.ID, &override.UserID, &rawDate, &override.Attending, &override.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOverrideNotFound
		}

		return nil, fmt.Errorf("select override: %w", err)
	}

	if rawDate.Valid {
		override.Date = domain.LunchDateOf(rawDate.Time)
	}

	return &override, nil
}

// ListAttendees assembles the final attendance list from overrides alone;
// defaults were already materialized as overrides during reconciliation.
func (r *overrideRepository) ListAttendees(ctx context.Context, date domain.LunchDate) ([]domain.AttendanceEntry, error) {
	const query = `
		SELECT u.full_name, u.email, u.dietary_preference
		FROM lunch_overrides lo
		JOIN users u ON u.id = lo.user_id
		WHERE lo.override_date = $1 AND lo.override_choice = TRUE AND u.is_enrolled = TRUE
		ORDER BY u.id
	`

	rows, err := r.db.QueryContext(ctx, query, date.Time())
	if err != nil {
		r.log.Error("failed to list attendees", slog.String("date", date.String()), slog.Any("error", err))
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	var entries []domain.AttendanceEntry
	for rows.Next() {
		var (
			entry   domain.AttendanceEntry
			dietary string
		)
		if err := rows.Scan(&entry.FullName, &entry.Email, &dietary); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}

		pref, err := domain.ParseDietaryPreference(dietary)
		if err != nil {
			return nil, err
		}
		entry.Dietary = pref

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}

	return entries, nil
}
