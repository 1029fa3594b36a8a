package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/lunchcrew/lunchbuddy-bot/internal/bot/keyboard"
	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
	"github.com/lunchcrew/lunchbuddy-bot/internal/state"
	"github.com/lunchcrew/lunchbuddy-bot/internal/user"
	"github.com/lunchcrew/lunchbuddy-bot/pkg/config"
)

// Context keys for answers accumulated across enrollment steps.
const (
	ctxKeyFullName = "full_name"
	ctxKeyEmail    = "email"
	ctxKeyDietary  = "dietary"
	ctxKeyDays     = "preferred_days"
)

// NewEnrollHandler starts the enrollment conversation.
func NewEnrollHandler(fsm state.StateMachine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		if err := fsm.SetState(ctx, c.Sender().ID, state.StateEnrollName, nil); err != nil {
			log.Error("failed to start enrollment", slog.Int64("telegram_id", c.Sender().ID), slog.Any("error", err))
			return err
		}

		return c.Send(msgAskName)
	}
}

// NewNameStepHandler consumes the full-name answer.
func NewNameStepHandler(fsm state.StateMachine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c.Sender() == nil {
			return nil
		}

		name := strings.TrimSpace(c.Text())
		if name == "" {
			return c.Send(msgAskName)
		}

		ctx := context.Background()
		data := map[string]interface{}{ctxKeyFullName: name}
		if err := fsm.TransitionTo(ctx, c.Sender().ID, state.StateEnrollEmail, data); err != nil {
			log.Error("enrollment name step failed", slog.Int64("telegram_id", c.Sender().ID), slog.Any("error", err))
			return err
		}

		return c.Send(fmt.Sprintf(msgAskEmail, name))
	}
}

// NewEmailStepHandler consumes the email answer and shows the diet picker.
func NewEmailStepHandler(fsm state.StateMachine, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c.Sender() == nil {
			return nil
		}

		email := strings.TrimSpace(c.Text())
		if _, err := mail.ParseAddress(email); err != nil {
			return c.Send(msgBadEmail)
		}

		ctx := context.Background()
		userID := c.Sender().ID

		data, err := carryContext(ctx, fsm, userID)
		if err != nil {
			return err
		}
		data[ctxKeyEmail] = email

		if err := fsm.TransitionTo(ctx, userID, state.StateEnrollDiet, data); err != nil {
			log.Error("enrollment email step failed", slog.Int64("telegram_id", userID), slog.Any("error", err))
			return err
		}

		return c.Send(msgAskDiet, kb.DietButtons())
	}
}

// NewDietCallbackHandler consumes the dietary preference button press and
// shows the day picker.
func NewDietCallbackHandler(fsm state.StateMachine, kb *keyboard.Builder, lunch config.LunchConfig, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		cb := c.Callback()
		if cb == nil || c.Sender() == nil {
			return nil
		}

		_, payload, err := keyboard.DecodeCallback(strings.TrimSpace(cb.Data))
		if err != nil {
			return err
		}

		diet, err := domain.ParseDietaryPreference(payload)
		if err != nil {
			log.Warn("unknown diet callback payload", slog.String("payload", payload))
			return c.Respond(&telebot.CallbackResponse{})
		}

		ctx := context.Background()
		userID := c.Sender().ID

		data, err := carryContext(ctx, fsm, userID)
		if err != nil {
			return err
		}
		data[ctxKeyDietary] = string(diet)
		data[ctxKeyDays] = []string{}

		if err := fsm.TransitionTo(ctx, userID, state.StateEnrollDays, data); err != nil {
			log.Error("enrollment diet step failed", slog.Int64("telegram_id", userID), slog.Any("error", err))
			return err
		}

		if err := c.Respond(&telebot.CallbackResponse{Text: diet.Label()}); err != nil {
			log.Warn("failed to ack diet callback", slog.Any("error", err))
		}

		return c.Send(msgAskDays, kb.DayToggles(lunch.Weekdays, nil))
	}
}

// NewDayToggleHandler flips a day in the picker and redraws the keyboard.
func NewDayToggleHandler(fsm state.StateMachine, kb *keyboard.Builder, lunch config.LunchConfig, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		cb := c.Callback()
		if cb == nil || c.Sender() == nil {
			return nil
		}

		_, payload, err := keyboard.DecodeCallback(strings.TrimSpace(cb.Data))
		if err != nil {
			return err
		}

		day, err := domain.ParseWeekday(payload)
		if err != nil {
			log.Warn("unknown day callback payload", slog.String("payload", payload))
			return c.Respond(&telebot.CallbackResponse{})
		}

		ctx := context.Background()
		userID := c.Sender().ID

		data, err := carryContext(ctx, fsm, userID)
		if err != nil {
			return err
		}

		days := toggleDay(contextDays(data), day)
		data[ctxKeyDays] = domain.WeekdayNames(days)

		if err := fsm.TransitionTo(ctx, userID, state.StateEnrollDays, data); err != nil {
			log.Error("enrollment day toggle failed", slog.Int64("telegram_id", userID), slog.Any("error", err))
			return err
		}

		if err := c.Respond(&telebot.CallbackResponse{}); err != nil {
			log.Warn("failed to ack day callback", slog.Any("error", err))
		}

		return c.Edit(msgAskDays, kb.DayToggles(lunch.Weekdays, days))
	}
}

// NewDaysDoneHandler confirms the day selection and completes enrollment.
func NewDaysDoneHandler(fsm state.StateMachine, users *user.Service, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c.Callback() == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID

		data, err := carryContext(ctx, fsm, userID)
		if err != nil {
			return err
		}

		if err := c.Respond(&telebot.CallbackResponse{}); err != nil {
			log.Warn("failed to ack done callback", slog.Any("error", err))
		}

		return completeEnrollment(ctx, c, fsm, users, data, log)
	}
}

// NewDaysStepHandler catches free text sent during the day-picker step and
// points the user back at the buttons.
func NewDaysStepHandler(fsm state.StateMachine, kb *keyboard.Builder, lunch config.LunchConfig, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c.Sender() == nil {
			return nil
		}

		ctx := context.Background()

		data, err := carryContext(ctx, fsm, c.Sender().ID)
		if err != nil {
			return err
		}

		return c.Send(msgUseDayButtons, kb.DayToggles(lunch.Weekdays, contextDays(data)))
	}
}

// completeEnrollment persists the accumulated answers and returns the user to
// idle.
func completeEnrollment(ctx context.Context, c telebot.Context, fsm state.StateMachine, users *user.Service, data map[string]interface{}, log *slog.Logger) error {
	userID := c.Sender().ID

	fullName, _ := data[ctxKeyFullName].(string)
	email, _ := data[ctxKeyEmail].(string)
	dietary, _ := data[ctxKeyDietary].(string)

	diet, err := domain.ParseDietaryPreference(dietary)
	if err != nil {
		// context was lost or corrupted mid-flow; restart cleanly
		log.Warn("enrollment context incomplete, restarting", slog.Int64("telegram_id", userID))
		if clearErr := fsm.ClearState(ctx, userID); clearErr != nil {
			log.Error("failed to clear broken enrollment state", slog.Any("error", clearErr))
		}
		return c.Send(msgEnrollAbort)
	}

	u, err := users.Enroll(ctx, userID, user.Enrollment{
		FullName:      fullName,
		Email:         email,
		Dietary:       diet,
		PreferredDays: contextDays(data),
	})
	if err != nil {
		return err
	}

	if err := fsm.TransitionTo(ctx, userID, state.StateIdle, nil); err != nil {
		log.Error("failed to reset state after enrollment", slog.Int64("telegram_id", userID), slog.Any("error", err))
	}

	return c.Send(fmt.Sprintf(msgEnrollDone, u.FullName, formatDays(u.PreferredDays)))
}

// carryContext loads the accumulated enrollment answers for the user.
func carryContext(ctx context.Context, fsm state.StateMachine, userID int64) (map[string]interface{}, error) {
	stored, err := fsm.GetState(ctx, userID)
	if err != nil {
		return nil, err
	}

	if stored == nil || stored.Context == nil {
		return map[string]interface{}{}, nil
	}

	data := make(map[string]interface{}, len(stored.Context))
	for k, v := range stored.Context {
		data[k] = v
	}
	return data, nil
}

// contextDays reads the day selection accumulated in the FSM context. The
// context round-trips through JSON, so a stored []string may come back as
// []interface{}.
func contextDays(data map[string]interface{}) []time.Weekday {
	var names []string
	switch v := data[ctxKeyDays].(type) {
	case []string:
		names = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
	}

	days, err := domain.ParseWeekdays(names)
	if err != nil {
		return nil
	}
	return days
}

// toggleDay flips the day's membership in the selection.
func toggleDay(days []time.Weekday, day time.Weekday) []time.Weekday {
	for i, d := range days {
		if d == day {
			return append(days[:i], days[i+1:]...)
		}
	}
	return append(days, day)
}

func formatDays(days []time.Weekday) string {
	if len(days) == 0 {
		return "none"
	}
	return strings.Join(domain.WeekdayNames(days), ", ")
}
