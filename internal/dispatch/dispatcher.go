// Package dispatch hands the final attendance list to the submission agent,
// exactly once per lunch date.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
	apperrors "github.com/lunchcrew/lunchbuddy-bot/internal/errors"
	"github.com/lunchcrew/lunchbuddy-bot/internal/repository"
	"github.com/lunchcrew/lunchbuddy-bot/internal/submission"
	"github.com/lunchcrew/lunchbuddy-bot/pkg/metrics"
)

// Notifier reports dispatch failures to the operator chat.
type Notifier interface {
	NotifyOperator(ctx context.Context, message string) error
}

// Dispatcher gates submission behind the cycle state machine:
// a date is submitted only from resolved, and only once.
type Dispatcher struct {
	overrides repository.OverrideRepository
	cycles    repository.CycleRepository
	agent     submission.Agent
	notifier  Notifier
	breaker   *apperrors.CircuitBreaker
	log       *slog.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(
	overrides repository.OverrideRepository,
	cycles repository.CycleRepository,
	agent submission.Agent,
	notifier Notifier,
	log *slog.Logger,
) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		overrides: overrides,
		cycles:    cycles,
		agent:     agent,
		notifier:  notifier,
		breaker:   apperrors.NewCircuitBreaker(),
		log:       log,
	}
}

// Dispatch submits the attendance list for a resolved date. A second call
// for an already submitted date is a no-op; a call for a still-collecting
// date is a state error. On agent failure the cycle stays resolved and the
// operator is notified; nothing is retried here.
func (d *Dispatcher) Dispatch(ctx context.Context, date domain.LunchDate) error {
	cycle, err := d.cycles.Get(ctx, date)
	if err != nil {
		return apperrors.NewStoreError(err)
	}

	switch cycle.State {
	case domain.CycleSubmitted:
		d.log.Info("dispatch skipped, already submitted", slog.String("lunch_date", date.String()))
		return nil
	case domain.CycleCollecting:
		return apperrors.NewStateError(fmt.Sprintf("cycle %s is still collecting", date))
	}

	entries, err := d.overrides.ListAttendees(ctx, date)
	if err != nil {
		return apperrors.NewStoreError(err)
	}

	start := time.Now()
	submitErr := d.breaker.Call(func() error {
		return d.agent.Submit(ctx, date, entries)
	})
	duration := time.Since(start)

	if submitErr != nil {
		metrics.RecordDispatch("failed", duration)
		subErr := apperrors.NewSubmissionError(date.String(), submitErr)

		if d.notifier != nil {
			msg := fmt.Sprintf("⚠️ Lunch order for %s could not be filed: %v. Use /resubmit %s to retry.",
				date, submitErr, date)
			if notifyErr := d.notifier.NotifyOperator(ctx, msg); notifyErr != nil {
				d.log.Error("operator notification failed", slog.Any("error", notifyErr))
			}
		}

		return subErr
	}

	advanced, err := d.cycles.Advance(ctx, date, domain.CycleResolved, domain.CycleSubmitted)
	if err != nil {
		return apperrors.NewStoreError(err)
	}
	if !advanced {
		// a concurrent dispatcher submitted between our Get and Advance
		d.log.Warn("cycle advanced elsewhere after submission", slog.String("lunch_date", date.String()))
	}

	metrics.RecordDispatch("submitted", duration)
	d.log.Info("lunch order submitted",
		slog.String("lunch_date", date.String()),
		slog.Int("attendees", len(entries)),
		slog.Duration("duration", duration),
	)

	return nil
}

// Sweep re-dispatches every resolved-but-unsubmitted date. Run at startup to
// pick up cycles whose submission failed or was interrupted by a crash.
func (d *Dispatcher) Sweep(ctx context.Context) error {
	cycles, err := d.cycles.ListInState(ctx, domain.CycleResolved)
	if err != nil {
		return apperrors.NewStoreError(err)
	}

	for _, cycle := range cycles {
		if err := d.Dispatch(ctx, cycle.Date); err != nil {
			d.log.Error("sweep dispatch failed",
				slog.String("lunch_date", cycle.Date.String()),
				slog.Any("error", err),
			)
		}
	}

	return nil
}
