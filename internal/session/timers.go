package session

import (
	"container/heap"
	"sync"
	"time"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
)

// TimerArena schedules session timeouts through a single goroutine and a
// single OS timer, backed by a min-heap of due times. Resource usage stays
// bounded no matter how many users a fan-out creates.
type TimerArena struct {
	mu      sync.Mutex
	heap    timerHeap
	entries map[domain.SessionKey]*timerEntry
	wake    chan struct{}
	done    chan struct{}
	stopped bool
	expire  func(key domain.SessionKey)
	now     func() time.Time
}

type timerEntry struct {
	key   domain.SessionKey
	dueAt time.Time
	index int
}

// NewTimerArena creates an arena that invokes expire for each key whose due
// time has passed. Expiry callbacks run on their own goroutines so a slow
// resolution never delays the next timer.
func NewTimerArena(expire func(key domain.SessionKey)) *TimerArena {
	a := &TimerArena{
		entries: make(map[domain.SessionKey]*timerEntry),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		expire:  expire,
		now:     time.Now,
	}

	go a.run()
	return a
}

// Arm schedules (or reschedules) the timeout for a session key.
func (a *TimerArena) Arm(key domain.SessionKey, dueAt time.Time) {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}

	if entry, ok := a.entries[key]; ok {
		entry.dueAt = dueAt
		heap.Fix(&a.heap, entry.index)
	} else {
		entry := &timerEntry{key: key, dueAt: dueAt}
		a.entries[key] = entry
		heap.Push(&a.heap, entry)
	}
	a.mu.Unlock()

	a.kick()
}

// Cancel drops the timeout for a session key. Cancelling an unknown key is a
// no-op, which is exactly what happens when a reply wins the race.
func (a *TimerArena) Cancel(key domain.SessionKey) {
	a.mu.Lock()
	if entry, ok := a.entries[key]; ok {
		delete(a.entries, key)
		heap.Remove(&a.heap, entry.index)
	}
	a.mu.Unlock()

	a.kick()
}

// Len returns the number of armed timers.
func (a *TimerArena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Stop shuts the arena down. Armed timers are discarded; restart recovery
// re-arms them from the store.
func (a *TimerArena) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.mu.Unlock()

	a.kick()
	<-a.done
}

func (a *TimerArena) kick() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *TimerArena) run() {
	defer close(a.done)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		a.mu.Lock()
		if a.stopped {
			a.mu.Unlock()
			return
		}

		now := a.now()
		var expired []domain.SessionKey
		for a.heap.Len() > 0 && !a.heap[0].dueAt.After(now) {
			entry := heap.Pop(&a.heap).(*timerEntry)
			delete(a.entries, entry.key)
			expired = append(expired, entry.key)
		}

		var wait time.Duration
		if a.heap.Len() > 0 {
			wait = a.heap[0].dueAt.Sub(now)
		} else {
			wait = time.Hour
		}
		a.mu.Unlock()

		for _, key := range expired {
			go a.expire(key)
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-a.wake:
		case <-timer.C:
		}
	}
}

// timerHeap orders entries by due time, earliest first.
type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool { return h[i].dueAt.Before(h[j].dueAt) }

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x interface{}) {
	entry := x.(*timerEntry)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*h = old[:n-1]
	return entry
}
