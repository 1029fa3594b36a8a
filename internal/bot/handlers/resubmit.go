package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/lunchcrew/lunchbuddy-bot/internal/dispatch"
	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
	apperrors "github.com/lunchcrew/lunchbuddy-bot/internal/errors"
)

// NewResubmitHandler lets the operator retry a failed attendance submission.
// Dispatch is idempotent at the cycle level, so retrying an already-submitted
// date is a no-op.
func NewResubmitHandler(dispatcher *dispatch.Dispatcher, operatorChatID int64, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c.Sender() == nil {
			return nil
		}

		if operatorChatID == 0 || c.Sender().ID != operatorChatID {
			return c.Send(msgOperatorOnly)
		}

		payload := ""
		if msg := c.Message(); msg != nil {
			payload = strings.TrimSpace(msg.Payload)
		}
		if payload == "" {
			return c.Send(msgResubmitUsage)
		}

		date, err := domain.ParseLunchDate(payload)
		if err != nil {
			return c.Send(msgResubmitUsage)
		}

		if err := c.Send(fmt.Sprintf(msgResubmitStarted, date)); err != nil {
			log.Warn("failed to ack resubmit", slog.Any("error", err))
		}

		err = apperrors.WithRetry(context.Background(), func() error {
			return dispatcher.Dispatch(context.Background(), date)
		})
		if err != nil {
			return c.Send(fmt.Sprintf(msgResubmitFailed, date, err))
		}

		return c.Send(fmt.Sprintf(msgResubmitOK, date))
	}
}
