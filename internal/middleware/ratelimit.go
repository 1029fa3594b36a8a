package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/telebot.v3"

	"github.com/lunchcrew/lunchbuddy-bot/internal/ratelimit"
)

// RateLimitMiddleware enforces per-user rate limits for incoming Telegram
// updates. The limiter fails open: a Redis outage should not silence the bot.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	limit   int
	window  time.Duration
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, limit int, window time.Duration, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		window:  window,
		log:     log,
	}
}

// Handle returns a telebot middleware that enforces per-user rate limits.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if m.limiter == nil || m.limit <= 0 {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil {
			return next(c)
		}

		key := fmt.Sprintf("user:%d", sender.ID)
		result, err := m.limiter.Check(context.Background(), key, m.limit, m.window)
		if err != nil {
			m.log.Warn("rate limiter error", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			return next(c)
		}

		if !result.Allowed {
			m.log.Warn("rate limit exceeded", slog.Int64("user_id", sender.ID))
			return c.Send("Easy there! Too many requests, try again in a minute.")
		}

		return next(c)
	}
}
