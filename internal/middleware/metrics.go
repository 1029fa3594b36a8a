package middleware

import (
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/lunchcrew/lunchbuddy-bot/internal/bot/handlers"
	"github.com/lunchcrew/lunchbuddy-bot/pkg/metrics"
)

// Metrics measures execution time and status for bot handlers.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		command := extractCommandName(c)
		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordCommand(command, status, time.Since(start))

		return err
	}
}

// extractCommandName keeps the label cardinality bounded: callback payloads
// carry dates, so only the prefix before the separator is reported.
func extractCommandName(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if cb := c.Callback(); cb != nil && cb.Data != "" {
		if idx := strings.Index(cb.Data, ":"); idx > 0 {
			return cb.Data[:idx]
		}
		return cb.Data
	}

	if text := c.Text(); text != "" {
		if strings.HasPrefix(text, "/") {
			return strings.Fields(text)[0]
		}
		return "text"
	}

	return "unknown"
}
