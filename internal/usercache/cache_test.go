package usercache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return client
}

func sampleUser() *domain.User {
	return &domain.User{
		ID:            1,
		TelegramID:    4242,
		FullName:      "Asha Rao",
		Email:         "asha@example.com",
		Dietary:       domain.DietVegetarian,
		PreferredDays: []time.Weekday{time.Tuesday, time.Thursday},
		IsEnrolled:    true,
	}
}

func TestCache_SetAndGet(t *testing.T) {
	cache := NewCache(setupTestRedis(t), time.Minute)
	ctx := context.Background()
	user := sampleUser()

	require.NoError(t, cache.Set(ctx, user))

	got, err := cache.Get(ctx, user.TelegramID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.FullName, got.FullName)
	assert.Equal(t, user.Dietary, got.Dietary)
	assert.Equal(t, user.PreferredDays, got.PreferredDays)
}

func TestCache_MissReturnsNilNil(t *testing.T) {
	cache := NewCache(setupTestRedis(t), time.Minute)

	got, err := cache.Get(context.Background(), 9999)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_Invalidate(t *testing.T) {
	cache := NewCache(setupTestRedis(t), time.Minute)
	ctx := context.Background()
	user := sampleUser()

	require.NoError(t, cache.Set(ctx, user))
	require.NoError(t, cache.Invalidate(ctx, user.TelegramID))

	got, err := cache.Get(ctx, user.TelegramID)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_NilClientIsNoop(t *testing.T) {
	cache := NewCache(nil, time.Minute)
	ctx := context.Background()

	assert.NoError(t, cache.Set(ctx, sampleUser()))

	got, err := cache.Get(ctx, 4242)
	assert.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, cache.Invalidate(ctx, 4242))
}
