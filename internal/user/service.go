// Package user provides business operations over enrolled users.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
	apperrors "github.com/lunchcrew/lunchbuddy-bot/internal/errors"
	"github.com/lunchcrew/lunchbuddy-bot/internal/repository"
	"github.com/lunchcrew/lunchbuddy-bot/internal/usercache"
)

// Enrollment carries the answers collected by the enrollment conversation.
type Enrollment struct {
	FullName      string
	Email         string
	Dietary       domain.DietaryPreference
	PreferredDays []time.Weekday
}

// Service provides business operations over users.
type Service struct {
	repo  repository.UserRepository
	cache *usercache.Cache
	log   *slog.Logger
}

// NewService constructs a new Service instance. cache may be nil.
func NewService(repo repository.UserRepository, cache *usercache.Cache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{repo: repo, cache: cache, log: log}
}

// Enroll validates the collected answers and persists the user. Re-enrolling
// an existing user overwrites their profile and restores is_enrolled.
func (s *Service) Enroll(ctx context.Context, telegramID int64, e Enrollment) (*domain.User, error) {
	fullName := strings.TrimSpace(e.FullName)
	if fullName == "" {
		return nil, apperrors.NewValidationError("full name cannot be empty")
	}

	email := strings.TrimSpace(e.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid email address %q", email))
	}

	if !e.Dietary.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown dietary preference %q", e.Dietary))
	}

	u := &domain.User{
		TelegramID:    telegramID,
		FullName:      fullName,
		Email:         email,
		Dietary:       e.Dietary,
		PreferredDays: e.PreferredDays,
		IsEnrolled:    true,
	}

	if err := s.repo.Upsert(ctx, u); err != nil {
		s.logError("enroll", telegramID, err)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, telegramID); err != nil {
			s.log.Warn("failed to invalidate user cache", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		}
	}

	s.log.Info("user enrolled",
		slog.Int64("telegram_id", telegramID),
		slog.String("dietary", string(u.Dietary)),
		slog.Int("preferred_days", len(u.PreferredDays)),
	)

	return u, nil
}

// Unenroll marks the user as no longer enrolled. Profile data is retained so
// re-enrolling later starts from a clean slate without losing history. It
// returns false when no enrolled user exists for the Telegram ID.
func (s *Service) Unenroll(ctx context.Context, telegramID int64) (bool, error) {
	removed, err := s.repo.Unenroll(ctx, telegramID)
	if err != nil {
		s.logError("unenroll", telegramID, err)
		return false, err
	}

	if removed && s.cache != nil {
		if err := s.cache.Invalidate(ctx, telegramID); err != nil {
			s.log.Warn("failed to invalidate user cache", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		}
	}

	return removed, nil
}

// Find returns the user for a Telegram ID, consulting the cache first.
// Returns repository.ErrUserNotFound when no profile exists.
func (s *Service) Find(ctx context.Context, telegramID int64) (*domain.User, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, telegramID)
		if err != nil {
			s.log.Warn("user cache lookup failed", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		} else if cached != nil {
			return cached, nil
		}
	}

	u, err := s.repo.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			s.logError("find", telegramID, err)
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, u); err != nil {
			s.log.Warn("failed to cache user", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		}
	}

	return u, nil
}

func (s *Service) logError(operation string, telegramID int64, err error) {
	s.log.Error("user service operation failed",
		slog.String("operation", operation),
		slog.Int64("telegram_id", telegramID),
		slog.Any("error", err),
	)
}
