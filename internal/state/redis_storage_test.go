package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisStorage_SetAndGet(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	log := testLogger()
	storage := NewRedisStorage(client, log)

	ctx := context.Background()
	userState := &UserState{
		UserID:       123,
		CurrentState: StateEnrollEmail,
		Context: map[string]interface{}{
			"full_name": "Asha Rao",
		},
	}

	err := storage.SetState(ctx, userState.UserID, userState)
	assert.NoError(t, err)

	result, err := storage.GetState(ctx, userState.UserID)
	assert.NoError(t, err)
	if assert.NotNil(t, result) {
		assert.Equal(t, userState.UserID, result.UserID)
		assert.Equal(t, userState.CurrentState, result.CurrentState)
		assert.Equal(t, userState.Context, result.Context)
		assert.False(t, result.UpdatedAt.IsZero())
	}
}

func TestRedisStorage_GetNotFound(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	log := testLogger()
	storage := NewRedisStorage(client, log)

	ctx := context.Background()

	state, err := storage.GetState(ctx, 999)
	assert.Nil(t, state)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_ClearState(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	log := testLogger()
	storage := NewRedisStorage(client, log)

	ctx := context.Background()
	userState := &UserState{
		UserID:       456,
		CurrentState: StateEnrollDays,
		Context:      map[string]interface{}{"dietary": "vegetarian"},
	}

	err := storage.SetState(ctx, userState.UserID, userState)
	assert.NoError(t, err)

	err = storage.ClearState(ctx, userState.UserID)
	assert.NoError(t, err)

	state, err := storage.GetState(ctx, userState.UserID)
	assert.Nil(t, state)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_GetAllStates(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	log := testLogger()
	storage := NewRedisStorage(client, log)

	ctx := context.Background()

	for _, userID := range []int64{1, 2, 3} {
		err := storage.SetState(ctx, userID, &UserState{
			UserID:       userID,
			CurrentState: StateEnrollName,
		})
		assert.NoError(t, err)
	}

	states, err := storage.GetAllStates(ctx)
	assert.NoError(t, err)
	assert.Len(t, states, 3)

	seen := make(map[int64]bool)
	for _, state := range states {
		seen[state.UserID] = true
		assert.Equal(t, StateEnrollName, state.CurrentState)
	}
	assert.Equal(t, map[int64]bool{1: true, 2: true, 3: true}, seen)
}
