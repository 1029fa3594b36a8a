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

// NewStatusHandler shows the caller's enrollment profile.
func NewStatusHandler(users *user.Service, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c.Sender() == nil {
			return nil
		}

		u, err := users.Find(context.Background(), c.Sender().ID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return c.Send(msgNotEnrolled)
			}
			return err
		}

		if !u.IsEnrolled {
			return c.Send(msgNotEnrolled)
		}

		return c.Send(fmt.Sprintf(msgStatusProfile,
			u.FullName, u.Email, u.Dietary.Label(), formatDays(u.PreferredDays)))
	}
}

// NewUnenrollHandler removes the caller from future lunch prompts.
func NewUnenrollHandler(users *user.Service, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c.Sender() == nil {
			return nil
		}

		removed, err := users.Unenroll(context.Background(), c.Sender().ID)
		if err != nil {
			return err
		}

		if !removed {
			return c.Send(msgNotEnrolled)
		}

		return c.Send(msgUnenrolled)
	}
}
