package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
)

// ErrUserNotFound indicates that no user record exists for the identifier.
var ErrUserNotFound = errors.New("user not found")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	// Upsert enrolls a user, replacing the profile and re-enabling enrollment
	// when a record already exists for the Telegram identifier.
	Upsert(ctx context.Context, user *domain.User) error
	// Unenroll soft-disables the user, keeping historical overrides intact.
	Unenroll(ctx context.Context, telegramID int64) (bool, error)
	ListEnrolled(ctx context.Context) ([]domain.User, error)
}

type userRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db *sql.DB, log *slog.Logger) UserRepository {
	if log == nil {
		log = slog.Default()
	}

	return &userRepository{
		db:  db,
		log: log,
	}
}

const userColumns = `id, telegram_id, full_name, email, dietary_preference, preferred_days, is_enrolled, created_at, updated_at`

// FindByTelegramID retrieves a user by their Telegram identifier, enrolled or not.
func (r *userRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		r.log.Error("failed to fetch user", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		return nil, fmt.Errorf("select user by telegram id: %w", err)
	}

	return user, nil
}

// Upsert creates or replaces the enrollment record keyed by telegram_id.
func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	const query = `
		INSERT INTO users (telegram_id, full_name, email, dietary_preference, preferred_days)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (telegram_id)
		DO UPDATE SET
			full_name          = EXCLUDED.full_name,
			email              = EXCLUDED.email,
			dietary_preference = EXCLUDED.dietary_preference,
			preferred_days     = EXCLUDED.preferred_days,
			is_enrolled        = TRUE,
			updated_at         = now()
		RETURNING id, created_at, updated_at
	`

	row := r.db.QueryRowContext(
		ctx,
		query,
		user.TelegramID,
		user.FullName,
		user.Email,
		string(user.Dietary),
		pq.Array(domain.WeekdayNames(user.PreferredDays)),
	)

	if err := row.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		r.log.Error("failed to upsert user", slog.Int64("telegram_id", user.TelegramID), slog.Any("error", err))
		return fmt.Errorf("upsert user: %w", err)
	}
	user.IsEnrolled = true

	return nil
}

// Unenroll disables participation without deleting the record.
func (r *userRepository) Unenroll(ctx context.Context, telegramID int64) (bool, error) {
	const query = `
		UPDATE users
		SET is_enrolled = FALSE, updated_at = now()
		WHERE telegram_id = $1 AND is_enrolled = TRUE
	`

	res, err := r.db.ExecContext(ctx, query, telegramID)
	if err != nil {
		r.log.Error("failed to unenroll user", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		return false, fmt.Errorf("unenroll user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unenroll user: %w", err)
	}

	return affected > 0, nil
}

// ListEnrolled returns every currently enrolled user.
func (r *userRepository) ListEnrolled(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_enrolled = TRUE ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.log.Error("failed to list enrolled users", slog.Any("error", err))
		return nil, fmt.Errorf("list enrolled users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrolled user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list enrolled users: %w", err)
	}

	return users, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user     domain.User
		dietary  string
		dayNames []string
	)

	if err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.FullName,
		&user.Email,
		&dietary,
		pq.Array(&dayNames),
		&user.IsEnrolled,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}

	pref, err := domain.ParseDietaryPreference(dietary)
	if err != nil {
		return nil, err
	}
	user.Dietary = pref

	days, err := domain.ParseWeekdays(dayNames)
	if err != nil {
		return nil, err
	}
	user.PreferredDays = days

	return &user, nil
}
