package submission

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWebhookAgent_SubmitPostsOrder(t *testing.T) {
	var received orderPayload
	var requestIDHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		requestIDHeader = r.Header.Get("X-Request-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	agent := NewWebhookAgent(srv.URL, 5*time.Second, testLogger())

	date := domain.LunchDate{Year: 2026, Month: time.September, Day: 3}
	entries := []domain.AttendanceEntry{
		{FullName: "Asha Rao", Email: "asha@example.com", Dietary: domain.DietVegetarian},
		{FullName: "Ben Ko", Email: "ben@example.com", Dietary: domain.DietNonVegetarian},
	}

	require.NoError(t, agent.Submit(context.Background(), date, entries))

	assert.Equal(t, "2026-09-03", received.LunchDate)
	assert.NotEmpty(t, received.RequestID)
	assert.Equal(t, received.RequestID, requestIDHeader)
	require.Len(t, received.Entries, 2)
	assert.Equal(t, "Veg", received.Entries[0].Dietary)
	assert.Equal(t, "Non Veg", received.Entries[1].Dietary)
}

func TestWebhookAgent_SubmitEmptyAttendance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload orderPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Empty(t, payload.Entries)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	agent := NewWebhookAgent(srv.URL, 5*time.Second, testLogger())
	date := domain.LunchDate{Year: 2026, Month: time.September, Day: 3}

	assert.NoError(t, agent.Submit(context.Background(), date, nil))
}

func TestWebhookAgent_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "form selector not found", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	agent := NewWebhookAgent(srv.URL, 5*time.Second, testLogger())
	date := domain.LunchDate{Year: 2026, Month: time.September, Day: 3}

	err := agent.Submit(context.Background(), date, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "form selector not found")
}

func TestWebhookAgent_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	agent := NewWebhookAgent(srv.URL, 5*time.Second, testLogger())
	date := domain.LunchDate{Year: 2026, Month: time.September, Day: 3}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.Error(t, agent.Submit(ctx, date, nil))
}
