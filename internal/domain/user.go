package domain

import (
	"fmt"
	"strings"
	"time"
)

// DietaryPreference is the meal type a user receives when attending.
type DietaryPreference string

const (
	DietVegetarian    DietaryPreference = "vegetarian"
	DietNonVegetarian DietaryPreference = "non_vegetarian"
)

// Label returns the human-facing form of the preference, matching the
// wording the submission form expects.
func (p DietaryPreference) Label() string {
	switch p {
	case DietVegetarian:
		return "Veg"
	case DietNonVegetarian:
		return "Non Veg"
	default:
		return string(p)
	}
}

// Valid reports whether the preference is one of the known values.
func (p DietaryPreference) Valid() bool {
	return p == DietVegetarian || p == DietNonVegetarian
}

// ParseDietaryPreference converts a stored or user-supplied value into a
// DietaryPreference.
func ParseDietaryPreference(s string) (DietaryPreference, error) {
	switch DietaryPreference(strings.ToLower(strings.TrimSpace(s))) {
	case DietVegetarian:
		return DietVegetarian, nil
	case DietNonVegetarian:
		return DietNonVegetarian, nil
	default:
		return "", fmt.Errorf("unknown dietary preference %q", s)
	}
}

// User represents an enrolled (or previously enrolled) lunch participant.
type User struct {
	ID            int64
	TelegramID    int64
	FullName      string
	Email         string
	Dietary       DietaryPreference
	PreferredDays []time.Weekday
	IsEnrolled    bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PrefersWeekday reports whether the user declared the given weekday as a
// default lunch day.
func (u *User) PrefersWeekday(day time.Weekday) bool {
	for _, d := range u.PreferredDays {
		if d == day {
			return true
		}
	}
	return false
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday converts an English weekday name into time.Weekday. Besides
// full names, three-letter forms like "tue" are accepted.
func ParseWeekday(name string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if day, ok := weekdayNames[key]; ok {
		return day, nil
	}

	if len(key) >= 3 {
		for full, day := range weekdayNames {
			if strings.HasPrefix(full, key) {
				return day, nil
			}
		}
	}

	return 0, fmt.Errorf("unknown weekday %q", name)
}

// WeekdayName returns the lowercase English name for a weekday, the form
// preferred days are stored in.
func WeekdayName(day time.Weekday) string {
	return strings.ToLower(day.String())
}

// ParseWeekdays converts a list of weekday names, rejecting duplicates.
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	seen := make(map[time.Weekday]bool, len(names))
	days := make([]time.Weekday, 0, len(names))

	for _, name := range names {
		day, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		if seen[day] {
			return nil, fmt.Errorf("duplicate weekday %q", name)
		}
		seen[day] = true
		days = append(days, day)
	}

	return days, nil
}

// WeekdayNames renders weekdays back into their stored string form.
func WeekdayNames(days []time.Weekday) []string {
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = WeekdayName(d)
	}
	return names
}
