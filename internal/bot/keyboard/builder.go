// Package keyboard renders the inline keyboards used by the bot.
package keyboard

import (
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/lunchcrew/lunchbuddy-bot/internal/domain"
)

// Callback prefixes carried in inline button payloads.
const (
	CallbackLunchYes  = "lunch_yes"
	CallbackLunchNo   = "lunch_no"
	CallbackDiet      = "diet"
	CallbackDayToggle = "day"
	CallbackDaysDone  = "days_done"
)

// Builder creates inline keyboards for the registration and enrollment flows.
type Builder struct {
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{log: log}
}

// LunchPrompt builds the Yes/No attendance keyboard for a lunch date. The
// date travels in the callback payload so late taps on an old prompt resolve
// against the right session.
func (b *Builder) LunchPrompt(date domain.LunchDate) *telebot.ReplyMarkup {
	yes, err := EncodeCallback(CallbackLunchYes, date.String())
	if err != nil {
		b.log.Error("failed to encode lunch callback", slog.Any("error", err))
		yes = CallbackLunchYes
	}

	no, err := EncodeCallback(CallbackLunchNo, date.String())
	if err != nil {
		b.log.Error("failed to encode lunch callback", slog.Any("error", err))
		no = CallbackLunchNo
	}

	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{
		{
			{Text: "Yes ✅", Data: yes},
			{Text: "No ❌", Data: no},
		},
	}
	return markup
}

// DietButtons builds the dietary preference picker for enrollment.
func (b *Builder) DietButtons() *telebot.ReplyMarkup {
	veg, _ := EncodeCallback(CallbackDiet, string(domain.DietVegetarian))
	nonVeg, _ := EncodeCallback(CallbackDiet, string(domain.DietNonVegetarian))

	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{
		{
			{Text: "Veg 🥗", Data: veg},
			{Text: "Non Veg 🍗", Data: nonVeg},
		},
	}
	return markup
}

// DayToggles builds the preferred-day picker for enrollment. One button per
// configured lunch day; selected days carry a check mark, and Done confirms
// the current selection.
func (b *Builder) DayToggles(lunchDays, selected []time.Weekday) *telebot.ReplyMarkup {
	chosen := make(map[time.Weekday]bool, len(selected))
	for _, d := range selected {
		chosen[d] = true
	}

	markup := &telebot.ReplyMarkup{}
	for _, day := range lunchDays {
		data, err := EncodeCallback(CallbackDayToggle, domain.WeekdayName(day))
		if err != nil {
			b.log.Error("failed to encode day callback", slog.Any("error", err))
			continue
		}

		label := day.String()
		if chosen[day] {
			label += " ✅"
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, []telebot.InlineButton{
			{Text: label, Data: data},
		})
	}

	markup.InlineKeyboard = append(markup.InlineKeyboard, []telebot.InlineButton{
		{Text: "Done ✔️", Data: CallbackDaysDone},
	})
	return markup
}
