// Package submission defines the narrow interface to the external agent that
// files the group's lunch order, plus its HTTP implementation.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
)

// Agent files the consolidated attendance list for one lunch date. Invoked at
// most once per date by the dispatch gate; retries, if any, happen behind
// this interface.
type Agent interface {
	Submit(ctx context.Context, date domain.LunchDate, entries []domain.AttendanceEntry) error
}

// orderPayload is the wire format the form-automation agent accepts.
type orderPayload struct {
	RequestID string       `json:"request_id"`
	LunchDate string       `json:"lunch_date"`
	Entries   []orderEntry `json:"entries"`
}

type orderEntry struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Dietary  string `json:"dietary_preference"`
}

// WebhookAgent posts the attendance list to the browser-automation agent's
// HTTP endpoint. The agent owns the form DOM; this side only hands over data.
type WebhookAgent struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

// NewWebhookAgent constructs an Agent targeting the given endpoint.
func NewWebhookAgent(url string, requestTimeout time.Duration, log *slog.Logger) *WebhookAgent {
	if requestTimeout <= 0 {
		requestTimeout = 2 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}

	return &WebhookAgent{
		url:    url,
		client: &http.Client{Timeout: requestTimeout},
		log:    log,
	}
}

// Submit posts the order and treats any non-2xx response as failure.
func (a *WebhookAgent) Submit(ctx context.Context, date domain.LunchDate, entries []domain.AttendanceEntry) error {
	payload := orderPayload{
		RequestID: uuid.NewString(),
		LunchDate: date.String(),
		Entries:   make([]orderEntry, 0, len(entries)),
	}
	for _, e := range entries {
		payload.Entries = append(payload.Entries, orderEntry{
			FullName: e.FullName,
			Email:    e.Email,
			Dietary:  e.Dietary.Label(),
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode order payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", payload.RequestID)

	a.log.Info("submitting lunch order",
		slog.String("lunch_date", date.String()),
		slog.Int("entries", len(entries)),
		slog.String("request_id", payload.RequestID),
	)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("submit order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("submission agent returned %d: %s", resp.StatusCode, string(snippet))
	}

	return nil
}
