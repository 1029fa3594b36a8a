package clock

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
	"github.com/lunchcrew/lunchbuddy-bot/pkg/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingStarter struct {
	mu    sync.Mutex
	dates []domain.LunchDate
}

func (s *recordingStarter) Begin(_ context.Context, date domain.LunchDate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dates = append(s.dates, date)
	return nil
}

func (s *recordingStarter) begun() []domain.LunchDate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LunchDate(nil), s.dates...)
}

func lunchConfig(days ...time.Weekday) config.LunchConfig {
	return config.LunchConfig{
		TriggerTime:   "07:00",
		Weekdays:      days,
		TriggerHour:   7,
		TriggerMinute: 0,
	}
}

func TestDayBefore(t *testing.T) {
	cases := map[time.Weekday]time.Weekday{
		time.Monday:    time.Sunday,
		time.Tuesday:   time.Monday,
		time.Wednesday: time.Tuesday,
		time.Thursday:  time.Wednesday,
		time.Friday:    time.Thursday,
		time.Saturday:  time.Friday,
		time.Sunday:    time.Saturday,
	}

	for day, want := range cases {
		assert.Equal(t, want, dayBefore(day), "day before %s", day)
	}
}

func TestCatchUp_FiresWhenTriggerTimePassed(t *testing.T) {
	starter := &recordingStarter{}
	trigger, err := NewTrigger(lunchConfig(time.Thursday), starter, testLogger())
	require.NoError(t, err)

	// Wednesday 2026-09-02 at 09:30 UTC, trigger was due at 07:00.
	trigger.SetNow(func() time.Time {
		return time.Date(2026, time.September, 2, 9, 30, 0, 0, time.UTC)
	})

	require.NoError(t, trigger.CatchUp(context.Background()))

	assert.Equal(t, []domain.LunchDate{{Year: 2026, Month: time.September, Day: 3}}, starter.begun())
}

func TestCatchUp_NoopBeforeTriggerTime(t *testing.T) {
	starter := &recordingStarter{}
	trigger, err := NewTrigger(lunchConfig(time.Thursday), starter, testLogger())
	require.NoError(t, err)

	// Wednesday, but 06:59 is still ahead of the 07:00 trigger.
	trigger.SetNow(func() time.Time {
		return time.Date(2026, time.September, 2, 6, 59, 0, 0, time.UTC)
	})

	require.NoError(t, trigger.CatchUp(context.Background()))

	assert.Empty(t, starter.begun())
}

func TestCatchUp_NoopWhenTomorrowIsNotLunchDay(t *testing.T) {
	starter := &recordingStarter{}
	trigger, err := NewTrigger(lunchConfig(time.Thursday), starter, testLogger())
	require.NoError(t, err)

	// Friday afternoon: tomorrow is Saturday, not a lunch day.
	trigger.SetNow(func() time.Time {
		return time.Date(2026, time.September, 4, 15, 0, 0, 0, time.UTC)
	})

	require.NoError(t, trigger.CatchUp(context.Background()))

	assert.Empty(t, starter.begun())
}

func TestFire_SkipsNonLunchWeekday(t *testing.T) {
	starter := &recordingStarter{}
	trigger, err := NewTrigger(lunchConfig(time.Thursday), starter, testLogger())
	require.NoError(t, err)

	// The schedule moved off Thursday, but a stale entry fires on Wednesday.
	require.NoError(t, trigger.Reload(lunchConfig(time.Tuesday)))

	trigger.SetNow(func() time.Time {
		return time.Date(2026, time.September, 2, 7, 0, 0, 0, time.UTC)
	})
	trigger.fire()

	assert.Empty(t, starter.begun())
}

func TestFire_BeginsTomorrowsSession(t *testing.T) {
	starter := &recordingStarter{}
	trigger, err := NewTrigger(lunchConfig(time.Thursday), starter, testLogger())
	require.NoError(t, err)

	trigger.SetNow(func() time.Time {
		return time.Date(2026, time.September, 2, 7, 0, 0, 0, time.UTC)
	})
	trigger.fire()

	assert.Equal(t, []domain.LunchDate{{Year: 2026, Month: time.September, Day: 3}}, starter.begun())
}

func TestReload_ReplacesSchedule(t *testing.T) {
	starter := &recordingStarter{}
	trigger, err := NewTrigger(lunchConfig(time.Tuesday, time.Thursday), starter, testLogger())
	require.NoError(t, err)
	require.Len(t, trigger.entries, 2)

	require.NoError(t, trigger.Reload(lunchConfig(time.Wednesday)))

	assert.Len(t, trigger.entries, 1)
	assert.Len(t, trigger.cron.Entries(), 1)
}

func TestNewTrigger_DefaultsNilLogger(t *testing.T) {
	trigger, err := NewTrigger(lunchConfig(time.Monday), &recordingStarter{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, trigger.log)
}
