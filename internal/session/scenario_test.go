package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchcrew/lunchbuddy-bot/internal/clock"
	"github.com/lunchcrew/lunchbuddy-bot/internal/dispatch"
	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
	"github.com/lunchcrew/lunchbuddy-bot/internal/reconcile"
	"github.com/lunchcrew/lunchbuddy-bot/internal/repository"
	"github.com/lunchcrew/lunchbuddy-bot/pkg/config"
)

// memOverrides is an in-memory repository.OverrideRepository joining choices
// back to user profiles for the attendance list.
type memOverrides struct {
	mu      sync.Mutex
	users   map[int64]domain.User
	choices map[domain.SessionKey]bool
}

func newMemOverrides(users ...domain.User) *memOverrides {
	m := &memOverrides{
		users:   make(map[int64]domain.User),
		choices: make(map[domain.SessionKey]bool),
	}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memOverrides) Upsert(ctx context.Context, userID int64, date domain.LunchDate, attending bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.choices[domain.SessionKey{UserID: userID, LunchDate: date}] = attending
	return nil
}

func (m *memOverrides) Get(ctx context.Context, userID int64, date domain.LunchDate) (*domain.Override, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attending, ok := m.choices[domain.SessionKey{UserID: userID, LunchDate: date}]
	if !ok {
		return nil, repository.ErrOverrideNotFound
	}
	return &domain.Override{UserID: userID, Date: date, Attending: attending}, nil
}

func (m *memOverrides) ListAttendees(ctx context.Context, date domain.LunchDate) ([]domain.AttendanceEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []domain.AttendanceEntry
	for key, attending := range m.choices {
		if key.LunchDate != date || !attending {
			continue
		}
		u, ok := m.users[key.UserID]
		if !ok {
			continue
		}
		entries = append(entries, domain.AttendanceEntry{
			FullName: u.FullName,
			Email:    u.Email,
			Dietary:  u.Dietary,
		})
	}
	return entries, nil
}

// recordingAgent captures each submission and signals when one arrives.
type recordingAgent struct {
	mu      sync.Mutex
	batches [][]domain.AttendanceEntry
	done    chan struct{}
}

func newRecordingAgent() *recordingAgent {
	return &recordingAgent{done: make(chan struct{}, 1)}
}

func (a *recordingAgent) Submit(ctx context.Context, date domain.LunchDate, entries []domain.AttendanceEntry) error {
	a.mu.Lock()
	a.batches = append(a.batches, append([]domain.AttendanceEntry(nil), entries...))
	a.mu.Unlock()

	select {
	case a.done <- struct{}{}:
	default:
	}
	return nil
}

func (a *recordingAgent) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.batches)
}

func (a *recordingAgent) lastBatch() []domain.AttendanceEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.batches) == 0 {
		return nil
	}
	return a.batches[len(a.batches)-1]
}

type nopNotifier struct{}

func (nopNotifier) NotifyOperator(ctx context.Context, message string) error { return nil }

// replyOnFirstPromptGateway answers the very first prompt synchronously,
// while later prompts of the same fan-out are still being delivered.
type replyOnFirstPromptGateway struct {
	mu      sync.Mutex
	manager *Manager
	date    domain.LunchDate
	replied bool
	prompts int
}

func (g *replyOnFirstPromptGateway) SendPrompt(ctx context.Context, user domain.User, date domain.LunchDate) error {
	g.mu.Lock()
	g.prompts++
	first := !g.replied
	g.replied = true
	g.mu.Unlock()

	if first {
		_, err := g.manager.OnReply(ctx, user.TelegramID, g.date, true)
		return err
	}
	return nil
}

func (g *replyOnFirstPromptGateway) NotifyDefault(ctx context.Context, telegramID int64, date domain.LunchDate, attending bool) error {
	return nil
}

// engine bundles the manager with a real reconciler and dispatcher over
// in-memory stores.
type engine struct {
	users     *fakeUserRepo
	sessions  *fakeSessionRepo
	cycles    *fakeCycleRepo
	overrides *memOverrides
	agent     *recordingAgent
	manager   *Manager
}

func newEngine(t *testing.T, gateway Gateway, timeout time.Duration, users ...domain.User) *engine {
	t.Helper()

	e := &engine{
		users:     newFakeUserRepo(users...),
		sessions:  newFakeSessionRepo(),
		cycles:    newFakeCycleRepo(),
		overrides: newMemOverrides(users...),
		agent:     newRecordingAgent(),
	}

	dispatcher := dispatch.NewDispatcher(e.overrides, e.cycles, e.agent, nopNotifier{}, testLogger())
	reconciler := reconcile.NewReconciler(e.overrides, e.sessions, e.cycles, dispatcher, testLogger())
	e.manager = NewManager(e.users, e.sessions, e.cycles, gateway, reconciler, timeout, testLogger())
	t.Cleanup(e.manager.Stop)

	return e
}

func TestEngine_ReplyDuringFanOutDoesNotDispatchPartialList(t *testing.T) {
	gateway := &replyOnFirstPromptGateway{date: thursday}
	e := newEngine(t, gateway, time.Hour,
		enrolledUser(1, 101, time.Thursday),
		enrolledUser(2, 102, time.Thursday),
		enrolledUser(3, 103, time.Thursday),
	)
	gateway.manager = e.manager

	require.NoError(t, e.manager.Begin(context.Background(), thursday))

	// One reply landed mid-fan-out; the other two sessions must still hold
	// the cycle open.
	assert.Equal(t, 3, gateway.prompts)
	assert.Equal(t, 0, e.agent.calls(), "dispatch must wait for every session")
	assert.Equal(t, domain.CycleCollecting, e.cycles.state(thursday))

	pending, err := e.sessions.CountPending(context.Background(), thursday)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)

	// The stragglers answer; the last one closes the date.
	_, err = e.manager.OnReply(context.Background(), 102, thursday, true)
	require.NoError(t, err)
	_, err = e.manager.OnReply(context.Background(), 103, thursday, true)
	require.NoError(t, err)

	assert.Equal(t, 1, e.agent.calls())
	assert.Len(t, e.agent.lastBatch(), 3)
	assert.Equal(t, domain.CycleSubmitted, e.cycles.state(thursday))
}

func TestEngine_TriggerToSubmission(t *testing.T) {
	asha := domain.User{
		ID: 1, TelegramID: 101, FullName: "Asha Rao", Email: "asha@example.com",
		Dietary: domain.DietVegetarian, PreferredDays: []time.Weekday{time.Monday}, IsEnrolled: true,
	}
	ben := domain.User{
		ID: 2, TelegramID: 102, FullName: "Ben Ko", Email: "ben@example.com",
		Dietary: domain.DietNonVegetarian, PreferredDays: []time.Weekday{time.Thursday}, IsEnrolled: true,
	}
	cara := domain.User{
		ID: 3, TelegramID: 103, FullName: "Cara Diaz", Email: "cara@example.com",
		Dietary: domain.DietVegetarian, PreferredDays: []time.Weekday{time.Monday}, IsEnrolled: true,
	}

	gateway := newFakeGateway()
	e := newEngine(t, gateway, 50*time.Millisecond, asha, ben, cara)

	trigger, err := clock.NewTrigger(config.LunchConfig{
		TriggerTime:   "07:00",
		Weekdays:      []time.Weekday{time.Thursday},
		TriggerHour:   7,
		TriggerMinute: 0,
	}, e.manager, testLogger())
	require.NoError(t, err)

	// Wednesday 2026-09-02 mid-morning: the 07:00 firing for Thursday's lunch
	// was missed, so catch-up runs the fan-out.
	trigger.SetNow(func() time.Time {
		return time.Date(2026, time.September, 2, 10, 0, 0, 0, time.UTC)
	})
	require.NoError(t, trigger.CatchUp(context.Background()))
	require.Equal(t, 3, gateway.promptCount())

	// Asha opts in explicitly; Ben and Cara let the timeout decide. Ben's
	// preferred days include Thursday, Cara's do not.
	outcome, err := e.manager.OnReply(context.Background(), 101, thursday, true)
	require.NoError(t, err)
	require.Equal(t, ReplyRecorded, outcome)

	select {
	case <-e.agent.done:
	case <-time.After(2 * time.Second):
		t.Fatal("submission did not arrive after timeout defaults")
	}

	assert.Equal(t, 1, e.agent.calls())
	assert.Equal(t, domain.CycleSubmitted, e.cycles.state(thursday))

	batch := e.agent.lastBatch()
	require.Len(t, batch, 2)
	byName := make(map[string]domain.DietaryPreference, len(batch))
	for _, entry := range batch {
		byName[entry.FullName] = entry.Dietary
	}
	assert.Equal(t, domain.DietVegetarian, byName["Asha Rao"])
	assert.Equal(t, domain.DietNonVegetarian, byName["Ben Ko"])

	caraOverride, err := e.overrides.Get(context.Background(), cara.ID, thursday)
	require.NoError(t, err)
	assert.False(t, caraOverride.Attending, "defaulted opt-out must still be recorded")
}
