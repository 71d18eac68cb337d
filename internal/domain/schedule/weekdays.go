package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidWeekday is returned for an unknown weekday code.
var ErrInvalidWeekday = errors.New("invalid weekday code")

// Weekdays is a set of weekdays stored as a bitmask indexed by time.Weekday.
type Weekdays uint8

// EveryDay contains all seven weekdays.
const EveryDay Weekdays = 1<<7 - 1

//nolint:gochecknoglobals // Lookup tables.
var (
	weekdayCodes = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

	// weekdayAliases maps the Portuguese abbreviations used by the mobile app.
	weekdayAliases = map[string]time.Weekday{
		"dom": time.Sunday,
		"seg": time.Monday,
		"ter": time.Tuesday,
		"qua": time.Wednesday,
		"qui": time.Thursday,
		"sex": time.Friday,
		"sab": time.Saturday,
		"sáb": time.Saturday,
	}
)

// NewWeekdays builds a set from the given days.
func NewWeekdays(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		w |= 1 << uint(d)
	}

	return w
}

// ParseWeekday converts a weekday code ("mon", "Seg", "tuesday") to time.Weekday.
func ParseWeekday(code string) (time.Weekday, error) {
	code = strings.ToLower(strings.TrimSpace(code))

	if d, ok := weekdayAliases[code]; ok {
		return d, nil
	}

	if len(code) >= 3 {
		for i, c := range weekdayCodes {
			if strings.HasPrefix(code, c) {
				return time.Weekday(i), nil
			}
		}
	}

	return time.Sunday, fmt.Errorf("%w: %q", ErrInvalidWeekday, code)
}

// ParseWeekdays parses a list of weekday codes into a set.
func ParseWeekdays(codes []string) (Weekdays, error) {
	var w Weekdays

	for _, code := range codes {
		d, err := ParseWeekday(code)
		if err != nil {
			return 0, err
		}

		w |= 1 << uint(d)
	}

	return w, nil
}

// Has reports whether d is in the set.
func (w Weekdays) Has(d time.Weekday) bool {
	return w&(1<<uint(d)) != 0
}

// Empty reports whether the set has no days.
func (w Weekdays) Empty() bool {
	return w&EveryDay == 0
}

// Codes returns the weekday codes in Sunday-first order.
func (w Weekdays) Codes() []string {
	codes := make([]string, 0, 7)

	for i, c := range weekdayCodes {
		if w.Has(time.Weekday(i)) {
			codes = append(codes, c)
		}
	}

	return codes
}

// String renders the set as comma-separated codes.
func (w Weekdays) String() string {
	return strings.Join(w.Codes(), ",")
}

// MarshalYAML renders the set as a list of codes.
func (w Weekdays) MarshalYAML() (any, error) {
	return w.Codes(), nil
}

// UnmarshalYAML accepts a list of codes.
func (w *Weekdays) UnmarshalYAML(unmarshal func(any) error) error {
	var codes []string
	if err := unmarshal(&codes); err != nil {
		return err
	}

	parsed, err := ParseWeekdays(codes)
	if err != nil {
		return err
	}

	*w = parsed

	return nil
}
