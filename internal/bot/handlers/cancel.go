package handlers

import (
	"context"
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/lunchcrew/lunchbuddy-bot/internal/state"
)

// NewCancelHandler aborts an in-progress enrollment conversation.
func NewCancelHandler(fsm state.StateMachine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID

		stored, err := fsm.GetState(ctx, userID)
		if err != nil {
			if errors.Is(err, state.ErrStateNotFound) {
				return c.Send(msgNothToCancel)
			}
			return err
		}

		if stored == nil || stored.CurrentState == state.StateIdle {
			return c.Send(msgNothToCancel)
		}

		if err := fsm.ClearState(ctx, userID); err != nil {
			log.Error("failed to clear state on cancel", slog.Int64("telegram_id", userID), slog.Any("error", err))
			return err
		}

		return c.Send(msgEnrollAbort)
	}
}
