// Package clock fires the daily registration trigger: once per calendar day,
// on the day before each configured lunch weekday, at the configured UTC time.
package clock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
	"github.com/lunchcrew/lunchbuddy-bot/pkg/config"
)

// Starter receives each firing. The session manager implements it; Begin is
// idempotent, so a duplicate firing after a crash-restart is harmless.
type Starter interface {
	Begin(ctx context.Context, date domain.LunchDate) error
}

// Trigger owns the cron schedule driving registration fan-outs.
type Trigger struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries []cron.EntryID
	lunch   config.LunchConfig
	starter Starter
	log     *slog.Logger
	now     func() time.Time
}

// NewTrigger builds the trigger clock. Call Start to begin firing.
func NewTrigger(lunch config.LunchConfig, starter Starter, log *slog.Logger) (*Trigger, error) {
	if log == nil {
		log = slog.Default()
	}

	t := &Trigger{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		lunch:   lunch,
		starter: starter,
		log:     log,
		now:     time.Now,
	}

	if err := t.register(lunch); err != nil {
		return nil, err
	}

	return t, nil
}

// register adds one cron entry per lunch weekday, scheduled on the weekday
// before it.
func (t *Trigger) register(lunch config.LunchConfig) error {
	for _, day := range lunch.Weekdays {
		promptDay := dayBefore(day)
		spec := fmt.Sprintf("%d %d * * %d", lunch.TriggerMinute, lunch.TriggerHour, int(promptDay))

		id, err := t.cron.AddFunc(spec, t.fire)
		if err != nil {
			return fmt.Errorf("schedule trigger %q: %w", spec, err)
		}
		t.entries = append(t.entries, id)

		t.log.Info("registration trigger scheduled",
			slog.String("lunch_day", domain.WeekdayName(day)),
			slog.String("prompt_day", domain.WeekdayName(promptDay)),
			slog.String("time_utc", lunch.TriggerTime),
		)
	}

	return nil
}

// SetNow overrides the time source.
func (t *Trigger) SetNow(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Start runs the cron loop.
func (t *Trigger) Start() {
	t.cron.Start()
}

// Stop halts the cron loop and waits for a running firing to finish.
func (t *Trigger) Stop() {
	<-t.cron.Stop().Done()
}

// Reload swaps in a new lunch schedule. In-flight sessions are untouched;
// only future firings use the new configuration.
func (t *Trigger) Reload(lunch config.LunchConfig) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range t.entries {
		t.cron.Remove(id)
	}
	t.entries = t.entries[:0]
	t.lunch = lunch

	return t.register(lunch)
}

// CatchUp fires immediately when today's trigger was missed: the process was
// down at trigger time, today is a prompt day, and the firing window already
// passed. Begin's own session check keeps this from double-prompting when the
// restart happened after a successful firing.
func (t *Trigger) CatchUp(ctx context.Context) error {
	t.mu.Lock()
	lunch := t.lunch
	t.mu.Unlock()

	now := t.now().UTC()
	lunchDate := domain.LunchDateOf(now).AddDays(1)

	if !lunch.IsLunchWeekday(lunchDate.Weekday()) {
		return nil
	}

	triggerAt := time.Date(now.Year(), now.Month(), now.Day(),
		lunch.TriggerHour, lunch.TriggerMinute, 0, 0, time.UTC)
	if now.Before(triggerAt) {
		return nil
	}

	t.log.Info("catching up missed trigger", slog.String("lunch_date", lunchDate.String()))

	return t.starter.Begin(ctx, lunchDate)
}

func (t *Trigger) fire() {
	t.mu.Lock()
	lunch := t.lunch
	t.mu.Unlock()

	now := t.now().UTC()
	lunchDate := domain.LunchDateOf(now).AddDays(1)

	if !lunch.IsLunchWeekday(lunchDate.Weekday()) {
		// a stale entry fired across a reload boundary
		t.log.Warn("skipping trigger for non-lunch weekday", slog.String("lunch_date", lunchDate.String()))
		return
	}

	t.log.Info("registration trigger fired", slog.String("lunch_date", lunchDate.String()))

	if err := t.starter.Begin(context.Background(), lunchDate); err != nil {
		t.log.Error("registration fan-out failed",
			slog.String("lunch_date", lunchDate.String()),
			slog.Any("error", err),
		)
	}
}

// dayBefore returns the weekday preceding the given one.
func dayBefore(day time.Weekday) time.Weekday {
	return (day + 6) % 7
}
