package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
)

// ErrCycleNotFound indicates that no cycle row exists for the date.
var ErrCycleNotFound = errors.New("lunch cycle not found")

// CycleRepository tracks each lunch date's progress through
// collecting, resolved, and submitted. Advance is a compare-and-set, which is
// what makes dispatch exactly-once.
type CycleRepository interface {
	// Ensure creates the cycle row in the collecting state, reporting false
	// if it already existed.
	Ensure(ctx context.Context, date domain.LunchDate) (bool, error)
	Get(ctx context.Context, date domain.LunchDate) (*domain.LunchCycle, error)
	// Advance moves the cycle from one state to the next. Returns false when
	// the cycle was not in the expected prior state.
	Advance(ctx context.Context, date domain.LunchDate, from, to domain.CycleState) (bool, error)
	// ListInState returns cycles in the given state, oldest first. Used to
	// find resolved-but-unsubmitted dates after a crash or failed submission.
	ListInState(ctx context.Context, state domain.CycleState) ([]domain.LunchCycle, error)
}

type cycleRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewCycleRepository creates a new SQL-backed cycle repository.
func NewCycleRepository(db *sql.DB, log *slog.Logger) CycleRepository {
	if log == nil {
		log = slog.Default()
	}

	return &cycleRepository{
		db:  db,
		log: log,
	}
}

// Ensure inserts the collecting row if absent.
func (r *cycleRepository) Ensure(ctx context.Context, date domain.LunchDate) (bool, error) {
	const query = `
		INSERT INTO lunch_cycles (lunch_date, state)
		VALUES ($1, 'collecting')
		ON CONFLICT (lunch_date) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query, date.Time())
	if err != nil {
		r.log.Error("failed to ensure cycle", slog.String("date", date.String()), slog.Any("error", err))
		return false, fmt.Errorf("ensure cycle: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure cycle: %w", err)
	}

	return affected > 0, nil
}

// Get returns the cycle for a date.
func (r *cycleRepository) Get(ctx context.Context, date domain.LunchDate) (*domain.LunchCycle, error) {
	const query = `
		SELECT lunch_date, state, created_at, resolved_at, submitted_at
		FROM lunch_cycles
		WHERE lunch_date = $1
	`

	cycle, err := scanCycle(r.db.QueryRowContext(ctx, query, date.Time()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCycleNotFound
		}

		return nil, fmt.Errorf("select cycle: %w", err)
	}

	return cycle, nil
}

// Advance performs the conditional state transition. The state column in the
// WHERE clause keeps concurrent advancers from both succeeding.
func (r *cycleRepository) Advance(ctx context.Context, date domain.LunchDate, from, to domain.CycleState) (bool, error) {
	const query = `
		UPDATE lunch_cycles
		SET state = $1,
		    resolved_at  = CASE WHEN $1 = 'resolved'  THEN now() ELSE resolved_at END,
		    submitted_at = CASE WHEN $1 = 'submitted' THEN now() ELSE submitted_at END
		WHERE lunch_date = $2 AND state = $3
	`

	res, err := r.db.ExecContext(ctx, query, string(to), date.Time(), string(from))
	if err != nil {
		r.log.Error("failed to advance cycle",
			slog.String("date", date.String()),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.Any("error", err),
		)
		return false, fmt.Errorf("advance cycle: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("advance cycle: %w", err)
	}

	return affected > 0, nil
}

// ListInState returns every cycle currently in the given state.
func (r *cycleRepository) ListInState(ctx context.Context, state domain.CycleState) ([]domain.LunchCycle, error) {
	const query = `
		SELECT lunch_date, state, created_at, resolved_at, submitted_at
		FROM lunch_cycles
		WHERE state = $1
		ORDER BY lunch_date
	`

	rows, err := r.db.QueryContext(ctx, query, string(state))
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	defer rows.Close()

	var cycles []domain.LunchCycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		cycles = append(cycles, *cycle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}

	return cycles, nil
}

func scanCycle(row rowScanner) (*domain.LunchCycle, error) {
	var (
		cycle       domain.LunchCycle
		rawDate     sql.NullTime
		rawState    string
		resolvedAt  sql.NullTime
		submittedAt sql.NullTime
	)

	if err := row.Scan(&rawDate, &rawState, &cycle.CreatedAt, &resolvedAt, &submittedAt); err != nil {
		return nil, err
	}

	if rawDate.Valid {
		cycle.Date = domain.LunchDateOf(rawDate.Time)
	}
	cycle.State = domain.CycleState(rawState)
	if resolvedAt.Valid {
		cycle.ResolvedAt = resolvedAt.Time
	}
	if submittedAt.Valid {
		cycle.SubmittedAt = submittedAt.Time
	}

	return &cycle, nil
}
