package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/lunchcrew/lunchbuddy-bot/internal/bot/keyboard"
	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
	"github.com/lunchcrew/lunchbuddy-bot/internal/session"
)

// NewLunchReplyHandler handles Yes/No presses on a lunch prompt. The press
// races the session timeout; when it loses, the user gets a gentle note
// instead of a changed answer.
func NewLunchReplyHandler(sessions *session.Manager, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		cb := c.Callback()
		if cb == nil || c.Sender() == nil {
			return nil
		}

		prefix, payload, err := keyboard.DecodeCallback(strings.TrimSpace(cb.Data))
		if err != nil {
			return err
		}

		date, err := domain.ParseLunchDate(payload)
		if err != nil {
			log.Warn("lunch callback with bad date payload",
				slog.String("payload", payload), slog.Int64("telegram_id", c.Sender().ID))
			return c.Respond(&telebot.CallbackResponse{})
		}

		attending := prefix == keyboard.CallbackLunchYes

		outcome, err := sessions.OnReply(context.Background(), c.Sender().ID, date, attending)
		if err != nil {
			return err
		}

		if err := c.Respond(&telebot.CallbackResponse{}); err != nil {
			log.Warn("failed to ack lunch callback", slog.Any("error", err))
		}

		if outcome == session.ReplyAlreadyClosed {
			return c.Send(msgReplyTooLate)
		}

		if attending {
			return c.Send(fmt.Sprintf(msgReplyYes, humanDate(date)))
		}
		return c.Send(fmt.Sprintf(msgReplyNo, humanDate(date)))
	}
}

func humanDate(date domain.LunchDate) string {
	return date.Time().Format("Mon, Jan 2")
}
