package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/lunchcrew/lunchbuddy-bot/internal/repository"
	"github.com/lunchcrew/lunchbuddy-bot/internal/user"
)

// NewStartHandler greets the user and points them at enrollment.
func NewStartHandler(users *user.Service, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c.Sender() == nil {
			log.Warn("start handler invoked without sender")
			return nil
		}

		u, err := users.Find(context.Background(), c.Sender().ID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return c.Send(msgWelcome)
			}
			return err
		}

		if u.IsEnrolled {
			return c.Send(fmt.Sprintf(msgWelcomeEnrolled, u.FullName))
		}

		return c.Send(msgWelcome)
	}
}

// NewHelpHandler lists the available commands.
func NewHelpHandler() Handler {
	return func(c telebot.Context) error {
		return c.Send(msgHelp)
	}
}
