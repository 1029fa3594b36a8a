package keyboard_test

import (
	"testing"
	"time"

	"github.com/lunchcrew/lunchbuddy-bot/internal/bot/keyboard"
)

func TestDayToggles(t *testing.T) {
	b := keyboard.NewBuilder(nil)
	lunchDays := []time.Weekday{time.Monday, time.Thursday}

	markup := b.DayToggles(lunchDays, []time.Weekday{time.Thursday})

	if got := len(markup.InlineKeyboard); got != 3 {
		t.Fatalf("expected 2 day rows plus Done, got %d rows", got)
	}

	monday := markup.InlineKeyboard[0][0]
	if monday.Text != "Monday" {
		t.Errorf("unselected day label = %q, want %q", monday.Text, "Monday")
	}
	if monday.Data != "day:monday" {
		t.Errorf("day callback data = %q, want %q", monday.Data, "day:monday")
	}

	thursday := markup.InlineKeyboard[1][0]
	if thursday.Text != "Thursday ✅" {
		t.Errorf("selected day label = %q, want %q", thursday.Text, "Thursday ✅")
	}

	done := markup.InlineKeyboard[2][0]
	if done.Data != keyboard.CallbackDaysDone {
		t.Errorf("done callback data = %q, want %q", done.Data, keyboard.CallbackDaysDone)
	}
}

func TestDayToggles_EmptySelection(t *testing.T) {
	b := keyboard.NewBuilder(nil)

	markup := b.DayToggles([]time.Weekday{time.Tuesday}, nil)

	if got := markup.InlineKeyboard[0][0].Text; got != "Tuesday" {
		t.Errorf("day label = %q, want no check mark", got)
	}
}
