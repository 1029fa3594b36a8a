// Package session implements the registration session manager: per-user
// fan-out, the reply-vs-timeout race, and restart recovery.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
	apperrors "github.com/lunchcrew/lunchbuddy-bot/internal/errors"
	"github.com/lunchcrew/lunchbuddy-bot/internal/repository"
	"github.com/lunchcrew/lunchbuddy-bot/pkg/logger"
	"github.com/lunchcrew/lunchbuddy-bot/pkg/metrics"
)

// Gateway is the messaging surface the engine consumes. The Telegram
// implementation lives in the bot package.
type Gateway interface {
	// SendPrompt delivers the Yes/No attendance question for a date.
	SendPrompt(ctx context.Context, user domain.User, date domain.LunchDate) error
	// NotifyDefault tells a user their session timed out and which way the
	// default went.
	NotifyDefault(ctx context.Context, telegramID int64, date domain.LunchDate, attending bool) error
}

// Resolver consumes each session exactly once when it leaves pending.
// Reconcile re-checks a date with no sessions left to resolve, so a cycle with
// zero participants still reaches dispatch.
type Resolver interface {
	OnResolved(ctx context.Context, session *domain.RegistrationSession) error
	Reconcile(ctx context.Context, date domain.LunchDate) error
}

// ReplyOutcome describes what an inbound reply did.
type ReplyOutcome int

const (
	// ReplyRecorded means the reply won the race and set the resolution.
	ReplyRecorded ReplyOutcome = iota
	// ReplyAlreadyClosed means the session was terminal or absent; the reply
	// was acknowledged but changed nothing.
	ReplyAlreadyClosed
)

// Manager owns registration sessions for all lunch dates in flight.
type Manager struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	cycles   repository.CycleRepository
	gateway  Gateway
	resolver Resolver
	timers   *TimerArena
	timeout  time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// NewManager wires the session manager and starts its timer arena.
func NewManager(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	cycles repository.CycleRepository,
	gateway Gateway,
	resolver Resolver,
	timeout time.Duration,
	log *slog.Logger,
) *Manager {
	if log == nil {
		log = slog.Default()
	}

	m := &Manager{
		users:    users,
		sessions: sessions,
		cycles:   cycles,
		gateway:  gateway,
		resolver: resolver,
		timeout:  timeout,
		log:      log,
		now:      time.Now,
	}
	m.timers = NewTimerArena(m.expireSession)

	return m
}

// Begin fans out one pending session per enrolled user for the lunch date.
// Calling it again for a date that already has sessions is a no-op, which
// makes redelivery after a crash-restart safe. Per-user delivery failures are
// logged and skipped; they never abort the batch.
func (m *Manager) Begin(ctx context.Context, date domain.LunchDate) error {
	ctx = logger.WithCorrelationID(ctx)

	exists, err := m.sessions.ExistsForDate(ctx, date)
	if err != nil {
		return apperrors.NewStoreError(err)
	}
	if exists {
		m.log.Info("sessions already exist for date, skipping fan-out",
			slog.String("lunch_date", date.String()))
		return nil
	}

	if _, err := m.cycles.Ensure(ctx, date); err != nil {
		return apperrors.NewStoreError(err)
	}

	users, err := m.users.ListEnrolled(ctx)
	if err != nil {
		return apperrors.NewStoreError(err)
	}

	if len(users) == 0 {
		m.log.Info("no enrolled users, resolving cycle immediately",
			slog.String("lunch_date", date.String()))
		// the reconciler sees zero pending sessions, advances the cycle, and
		// dispatches the empty attendance list
		return m.resolver.Reconcile(ctx, date)
	}

	sentAt := m.now().UTC()
	dueAt := sentAt.Add(m.timeout)
	weekday := date.Weekday()

	// Create every session row before the first prompt goes out. A reply to an
	// early prompt must find the remaining sessions already pending, or the
	// reconciler would see the date as fully resolved mid-fan-out and dispatch
	// a partial attendance list.
	prompted := make([]*domain.User, 0, len(users))
	for i := range users {
		user := &users[i]

		sess := &domain.RegistrationSession{
			UserID:        user.ID,
			TelegramID:    user.TelegramID,
			LunchDate:     date,
			SentAt:        sentAt,
			DueAt:         dueAt,
			DefaultChoice: user.PrefersWeekday(weekday),
		}

		created, err := m.sessions.Create(ctx, sess)
		if err != nil {
			// store-level failure is fatal to the cycle
			return apperrors.NewStoreError(err)
		}
		if !created {
			continue
		}

		prompted = append(prompted, user)
	}

	for _, user := range prompted {
		m.timers.Arm(domain.SessionKey{UserID: user.ID, LunchDate: date}, dueAt)

		if err := m.gateway.SendPrompt(ctx, *user, date); err != nil {
			// the session stays pending and the timer stays armed, so the
			// user is still registered by default at timeout
			deliveryErr := apperrors.NewDeliveryError(user.TelegramID, err)
			m.log.Warn("prompt delivery failed",
				slog.Int64("telegram_id", user.TelegramID),
				slog.String("lunch_date", date.String()),
				slog.Any("error", deliveryErr),
			)
			metrics.RecordPrompt("failed")
			continue
		}

		metrics.RecordPrompt("sent")
	}

	m.log.Info("registration fan-out complete",
		slog.String("lunch_date", date.String()),
		slog.Int("users", len(users)),
		slog.Time("due_at", dueAt),
	)
	metrics.SetPendingSessions(m.timers.Len())

	return nil
}

// OnReply applies an explicit user reply. Replies for terminal or missing
// sessions are acknowledged as already closed, never errors, so duplicate or
// replayed callbacks are harmless.
func (m *Manager) OnReply(ctx context.Context, telegramID int64, date domain.LunchDate, choice bool) (ReplyOutcome, error) {
	user, err := m.users.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			metrics.RecordStaleReply()
			return ReplyAlreadyClosed, nil
		}
		return ReplyAlreadyClosed, apperrors.NewStoreError(err)
	}

	sess, err := m.sessions.Resolve(ctx, user.ID, date, domain.SessionAnswered, choice)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotPending) {
			metrics.RecordStaleReply()
			return ReplyAlreadyClosed, nil
		}
		return ReplyAlreadyClosed, apperrors.NewStoreError(err)
	}

	m.timers.Cancel(sess.Key())
	metrics.RecordResolution("answered", sess.Resolution)
	metrics.SetPendingSessions(m.timers.Len())

	m.log.Info("session answered",
		slog.Int64("telegram_id", telegramID),
		slog.String("lunch_date", date.String()),
		slog.Bool("attending", sess.Resolution),
	)

	if err := m.resolver.OnResolved(ctx, sess); err != nil {
		return ReplyRecorded, err
	}

	return ReplyRecorded, nil
}

// Recover reloads pending sessions after a restart: overdue ones resolve to
// their default immediately, the rest get timers re-armed for the remaining
// duration.
func (m *Manager) Recover(ctx context.Context) error {
	ctx = logger.WithCorrelationID(ctx)

	pending, err := m.sessions.ListPending(ctx)
	if err != nil {
		return apperrors.NewStoreError(err)
	}

	now := m.now()
	overdue, rearmed := 0, 0

	for i := range pending {
		sess := &pending[i]

		if sess.DueAt.After(now) {
			m.timers.Arm(sess.Key(), sess.DueAt)
			rearmed++
			continue
		}

		m.resolveDefault(ctx, sess.Key())
		overdue++
	}

	if len(pending) > 0 {
		m.log.Info("session recovery complete",
			slog.Int("overdue", overdue),
			slog.Int("rearmed", rearmed),
		)
	}
	metrics.SetPendingSessions(m.timers.Len())

	return nil
}

// Stop flushes pending timers. Pending sessions stay in the store and are
// picked up by Recover on the next start.
func (m *Manager) Stop() {
	m.timers.Stop()
}

// expireSession is the timer arena callback.
func (m *Manager) expireSession(key domain.SessionKey) {
	ctx := logger.WithCorrelationID(context.Background())
	m.resolveDefault(ctx, key)
}

func (m *Manager) resolveDefault(ctx context.Context, key domain.SessionKey) {
	sess, err := m.sessions.ResolveDefault(ctx, key.UserID, key.LunchDate)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotPending) {
			// a reply won the race between timer pop and this write
			return
		}

		m.log.Error("failed to default session",
			slog.Int64("user_id", key.UserID),
			slog.String("lunch_date", key.LunchDate.String()),
			slog.Any("error", err),
		)
		return
	}

	metrics.RecordResolution("defaulted", sess.Resolution)
	metrics.SetPendingSessions(m.timers.Len())

	m.log.Info("session defaulted",
		slog.Int64("user_id", key.UserID),
		slog.String("lunch_date", key.LunchDate.String()),
		slog.Bool("attending", sess.Resolution),
	)

	if err := m.gateway.NotifyDefault(ctx, sess.TelegramID, sess.LunchDate, sess.Resolution); err != nil {
		m.log.Warn("timeout notification failed",
			slog.Int64("telegram_id", sess.TelegramID),
			slog.Any("error", err),
		)
	}

	if err := m.resolver.OnResolved(ctx, sess); err != nil {
		m.log.Error("resolver failed for defaulted session",
			slog.Int64("user_id", key.UserID),
			slog.String("lunch_date", key.LunchDate.String()),
			slog.Any("error", err),
		)
	}
}
