package user

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
	apperrors "github.com/lunchcrew/lunchbuddy-bot/internal/errors"
	"github.com/lunchcrew/lunchbuddy-bot/internal/repository"
	"github.com/lunchcrew/lunchbuddy-bot/internal/usercache"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[int64]*domain.User
	nextID  int64
	findAny int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*domain.User)}
}

func (r *fakeUserRepo) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.findAny++
	u, ok := r.users[telegramID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) Upsert(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.users[user.TelegramID]; ok {
		user.ID = existing.ID
	} else {
		r.nextID++
		user.ID = r.nextID
	}
	copied := *user
	r.users[user.TelegramID] = &copied
	return nil
}

func (r *fakeUserRepo) Unenroll(ctx context.Context, telegramID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[telegramID]
	if !ok || !u.IsEnrolled {
		return false, nil
	}
	u.IsEnrolled = false
	return true, nil
}

func (r *fakeUserRepo) ListEnrolled(ctx context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.User
	for _, u := range r.users {
		if u.IsEnrolled {
			out = append(out, *u)
		}
	}
	return out, nil
}

func testCache(t *testing.T) *usercache.Cache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return usercache.NewCache(client, time.Minute)
}

func validEnrollment() Enrollment {
	return Enrollment{
		FullName:      "Asha Rao",
		Email:         "asha@example.com",
		Dietary:       domain.DietVegetarian,
		PreferredDays: []time.Weekday{time.Tuesday, time.Thursday},
	}
}

func TestService_Enroll(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, nil, testLogger())

	u, err := svc.Enroll(context.Background(), 42, validEnrollment())
	require.NoError(t, err)

	assert.Equal(t, int64(42), u.TelegramID)
	assert.True(t, u.IsEnrolled)
	assert.Equal(t, domain.DietVegetarian, u.Dietary)

	stored, err := repo.FindByTelegramID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", stored.FullName)
}

func TestService_Enroll_TrimsName(t *testing.T) {
	svc := NewService(newFakeUserRepo(), nil, testLogger())

	e := validEnrollment()
	e.FullName = "  Asha Rao  "

	u, err := svc.Enroll(context.Background(), 42, e)
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", u.FullName)
}

func TestService_Enroll_Validation(t *testing.T) {
	svc := NewService(newFakeUserRepo(), nil, testLogger())
	ctx := context.Background()

	testCases := []struct {
		name   string
		mutate func(e *Enrollment)
	}{
		{name: "empty name", mutate: func(e *Enrollment) { e.FullName = "   " }},
		{name: "bad email", mutate: func(e *Enrollment) { e.Email = "not-an-email" }},
		{name: "unknown dietary", mutate: func(e *Enrollment) { e.Dietary = "pescatarian" }},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			e := validEnrollment()
			tc.mutate(&e)

			_, err := svc.Enroll(ctx, 42, e)
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.False(t, appErr.Retryable)
		})
	}
}

func TestService_ReenrollOverwritesProfile(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, nil, testLogger())
	ctx := context.Background()

	_, err := svc.Enroll(ctx, 42, validEnrollment())
	require.NoError(t, err)

	removed, err := svc.Unenroll(ctx, 42)
	require.NoError(t, err)
	assert.True(t, removed)

	e := validEnrollment()
	e.Dietary = domain.DietNonVegetarian
	u, err := svc.Enroll(ctx, 42, e)
	require.NoError(t, err)

	assert.True(t, u.IsEnrolled)
	assert.Equal(t, domain.DietNonVegetarian, u.Dietary)
}

func TestService_Unenroll_UnknownUser(t *testing.T) {
	svc := NewService(newFakeUserRepo(), nil, testLogger())

	removed, err := svc.Unenroll(context.Background(), 999)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestService_Find_CachesProfile(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, testCache(t), testLogger())
	ctx := context.Background()

	_, err := svc.Enroll(ctx, 42, validEnrollment())
	require.NoError(t, err)

	first, err := svc.Find(ctx, 42)
	require.NoError(t, err)

	lookupsAfterFirst := repo.findAny

	second, err := svc.Find(ctx, 42)
	require.NoError(t, err)

	assert.Equal(t, first.FullName, second.FullName)
	assert.Equal(t, lookupsAfterFirst, repo.findAny, "second Find should hit the cache")
}

func TestService_Find_NotFound(t *testing.T) {
	svc := NewService(newFakeUserRepo(), nil, testLogger())

	_, err := svc.Find(context.Background(), 999)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestService_Enroll_InvalidatesCache(t *testing.T) {
	repo := newFakeUserRepo()
	cache := testCache(t)
	svc := NewService(repo, cache, testLogger())
	ctx := context.Background()

	_, err := svc.Enroll(ctx, 42, validEnrollment())
	require.NoError(t, err)

	// Warm the cache, re-enroll with new data, then confirm the stale
	// entry is gone.
	_, err = svc.Find(ctx, 42)
	require.NoError(t, err)

	e := validEnrollment()
	e.FullName = "Asha R. Rao"
	_, err = svc.Enroll(ctx, 42, e)
	require.NoError(t, err)

	cached, err := cache.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, cached)
}
