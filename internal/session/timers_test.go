package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
)

type expiryRecorder struct {
	mu   sync.Mutex
	keys []domain.SessionKey
	done chan domain.SessionKey
}

func newExpiryRecorder() *expiryRecorder {
	return &expiryRecorder{done: make(chan domain.SessionKey, 16)}
}

func (r *expiryRecorder) expire(key domain.SessionKey) {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()
	r.done <- key
}

func (r *expiryRecorder) wait(t *testing.T) domain.SessionKey {
	t.Helper()
	select {
	case key := <-r.done:
		return key
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for expiry")
		return domain.SessionKey{}
	}
}

func sessionKey(userID int64, day int) domain.SessionKey {
	return domain.SessionKey{
		UserID:    userID,
		LunchDate: domain.LunchDate{Year: 2026, Month: time.September, Day: day},
	}
}

func TestTimerArena_ExpiresDueTimer(t *testing.T) {
	rec := newExpiryRecorder()
	arena := NewTimerArena(rec.expire)
	t.Cleanup(arena.Stop)

	key := sessionKey(1, 1)
	arena.Arm(key, time.Now().Add(20*time.Millisecond))

	assert.Equal(t, key, rec.wait(t))
	assert.Equal(t, 0, arena.Len())
}

func TestTimerArena_CancelPreventsExpiry(t *testing.T) {
	rec := newExpiryRecorder()
	arena := NewTimerArena(rec.expire)
	t.Cleanup(arena.Stop)

	key := sessionKey(1, 1)
	arena.Arm(key, time.Now().Add(50*time.Millisecond))
	arena.Cancel(key)

	select {
	case <-rec.done:
		t.Fatal("cancelled timer expired")
	case <-time.After(150 * time.Millisecond):
	}
	assert.Equal(t, 0, arena.Len())
}

func TestTimerArena_CancelUnknownKeyIsNoop(t *testing.T) {
	rec := newExpiryRecorder()
	arena := NewTimerArena(rec.expire)
	t.Cleanup(arena.Stop)

	arena.Cancel(sessionKey(99, 1))
	assert.Equal(t, 0, arena.Len())
}

func TestTimerArena_ExpiresInDueOrder(t *testing.T) {
	rec := newExpiryRecorder()
	arena := NewTimerArena(rec.expire)
	t.Cleanup(arena.Stop)

	late := sessionKey(2, 1)
	early := sessionKey(1, 1)
	arena.Arm(late, time.Now().Add(80*time.Millisecond))
	arena.Arm(early, time.Now().Add(20*time.Millisecond))

	assert.Equal(t, early, rec.wait(t))
	assert.Equal(t, late, rec.wait(t))
}

func TestTimerArena_RearmMovesDueTime(t *testing.T) {
	rec := newExpiryRecorder()
	arena := NewTimerArena(rec.expire)
	t.Cleanup(arena.Stop)

	key := sessionKey(1, 1)
	arena.Arm(key, time.Now().Add(time.Hour))
	require.Equal(t, 1, arena.Len())

	arena.Arm(key, time.Now().Add(20*time.Millisecond))
	assert.Equal(t, key, rec.wait(t))
}

func TestTimerArena_StopDiscardsTimers(t *testing.T) {
	rec := newExpiryRecorder()
	arena := NewTimerArena(rec.expire)

	arena.Arm(sessionKey(1, 1), time.Now().Add(time.Hour))
	arena.Stop()

	// arming after stop must not panic or leak
	arena.Arm(sessionKey(2, 1), time.Now())
	assert.Equal(t, 0, len(rec.keys))
}
