// Package reconcile turns resolved sessions into durable overrides and
// advances each lunch date toward dispatch.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
	apperrors "github.com/lunchcrew/lunchbuddy-bot/internal/errors"
	"github.com/lunchcrew/lunchbuddy-bot/internal/repository"
)

// Dispatcher hands a fully resolved lunch date to the submission side.
type Dispatcher interface {
	Dispatch(ctx context.Context, date domain.LunchDate) error
}

// Reconciler records every resolution as an override and fires dispatch when
// the last session for a date resolves.
type Reconciler struct {
	overrides  repository.OverrideRepository
	sessions   repository.SessionRepository
	cycles     repository.CycleRepository
	dispatcher Dispatcher
	log        *slog.Logger
}

// NewReconciler constructs a Reconciler.
func NewReconciler(
	overrides repository.OverrideRepository,
	sessions repository.SessionRepository,
	cycles repository.CycleRepository,
	dispatcher Dispatcher,
	log *slog.Logger,
) *Reconciler {
	if log == nil {
		log = slog.Default()
	}

	return &Reconciler{
		overrides:  overrides,
		sessions:   sessions,
		cycles:     cycles,
		dispatcher: dispatcher,
		log:        log,
	}
}

// OnResolved is invoked exactly once per resolved session. The override is
// recorded whether the session was answered or defaulted, so downstream
// consumers only ever read overrides and never recompute defaults.
func (r *Reconciler) OnResolved(ctx context.Context, session *domain.RegistrationSession) error {
	if err := r.overrides.Upsert(ctx, session.UserID, session.LunchDate, session.Resolution); err != nil {
		return apperrors.NewStoreError(err)
	}

	return r.Reconcile(ctx, session.LunchDate)
}

// Reconcile advances the cycle to resolved once no session for the date is
// pending, and triggers dispatch. Safe to call repeatedly: the cycle CAS lets
// only one caller through, and dispatch itself is gated again on the
// submitted marker.
func (r *Reconciler) Reconcile(ctx context.Context, date domain.LunchDate) error {
	pending, err := r.sessions.CountPending(ctx, date)
	if err != nil {
		return apperrors.NewStoreError(err)
	}
	if pending > 0 {
		return nil
	}

	advanced, err := r.cycles.Advance(ctx, date, domain.CycleCollecting, domain.CycleResolved)
	if err != nil {
		return apperrors.NewStoreError(err)
	}
	if !advanced {
		// another resolution already advanced the cycle, or it was
		// resolved/submitted before a restart
		return nil
	}

	r.log.Info("all sessions resolved", slog.String("lunch_date", date.String()))

	if err := r.dispatcher.Dispatch(ctx, date); err != nil {
		// the cycle stays resolved; a sweep or /resubmit can retry without
		// re-asking users
		r.log.Error("dispatch failed",
			slog.String("lunch_date", date.String()),
			slog.Any("error", err),
		)
	}

	return nil
}
