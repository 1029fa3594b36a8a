package bot

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/lunchcrew/lunchbuddy-bot/internal/bot/keyboard"
	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
	apperrors "github.com/lunchcrew/lunchbuddy-bot/internal/errors"
)

const (
	msgLunchPrompt    = "🍽 Lunch on %s — are you in?"
	msgTimeoutDefault = "⏰ No reply in time for %s, so I went with your default: %s."
)

// Gateway delivers registration prompts and notifications over Telegram. It
// is the outbound half of the bot; the router handles the inbound half.
type Gateway struct {
	telebot *telebot.Bot
	kb      *keyboard.Builder
	log     *slog.Logger
}

// NewGateway builds a Gateway over an initialized telebot instance.
func NewGateway(tb *telebot.Bot, kb *keyboard.Builder, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}

	return &Gateway{telebot: tb, kb: kb, log: log}
}

// SendPrompt delivers the Yes/No attendance question for a date.
func (g *Gateway) SendPrompt(ctx context.Context, user domain.User, date domain.LunchDate) error {
	text := fmt.Sprintf(msgLunchPrompt, date.Time().Format("Monday, Jan 2"))

	recipient := &telebot.User{ID: user.TelegramID}
	if _, err := g.telebot.Send(recipient, text, g.kb.LunchPrompt(date)); err != nil {
		return apperrors.NewDeliveryError(user.TelegramID, err)
	}

	return nil
}

// NotifyDefault tells a user their session timed out and which answer was
// recorded on their behalf.
func (g *Gateway) NotifyDefault(ctx context.Context, telegramID int64, date domain.LunchDate, attending bool) error {
	answer := "not attending"
	if attending {
		answer = "attending"
	}

	text := fmt.Sprintf(msgTimeoutDefault, date.Time().Format("Monday, Jan 2"), answer)

	if _, err := g.telebot.Send(&telebot.User{ID: telegramID}, text); err != nil {
		return apperrors.NewDeliveryError(telegramID, err)
	}

	return nil
}

// NotifyOperator sends an operational alert to the configured operator chat.
type OperatorNotifier struct {
	telebot        *telebot.Bot
	operatorChatID int64
	log            *slog.Logger
}

// NewOperatorNotifier builds the operator alert channel. A zero chat ID
// disables alerts.
func NewOperatorNotifier(tb *telebot.Bot, operatorChatID int64, log *slog.Logger) *OperatorNotifier {
	if log == nil {
		log = slog.Default()
	}

	return &OperatorNotifier{telebot: tb, operatorChatID: operatorChatID, log: log}
}

// NotifyOperator delivers the message to the operator chat.
func (n *OperatorNotifier) NotifyOperator(ctx context.Context, message string) error {
	if n.operatorChatID == 0 {
		n.log.Warn("operator chat not configured, dropping alert", slog.String("message", message))
		return nil
	}

	if _, err := n.telebot.Send(&telebot.User{ID: n.operatorChatID}, message); err != nil {
		return apperrors.NewDeliveryError(n.operatorChatID, err)
	}

	return nil
}
