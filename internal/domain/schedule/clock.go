package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the number of minutes in a calendar day.
const MinutesPerDay = 24 * 60

// ErrInvalidClock is returned when a time of day cannot be parsed.
var ErrInvalidClock = errors.New("invalid time of day")

// Clock is a time of day with minute precision.
type Clock struct {
	// Hour is in the range 0-23.
	Hour int
	// Minute is in the range 0-59.
	Minute int
}

// ParseClock parses "HH:MM" (a single-digit hour is accepted).
func ParseClock(s string) (Clock, error) {
	hour, minute, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	h, err := strconv.Atoi(hour)
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("%w: hour in %q", ErrInvalidClock, s)
	}

	m, err := strconv.Atoi(minute)
	if err != nil || m < 0 || m > 59 || len(minute) != 2 {
		return Clock{}, fmt.Errorf("%w: minute in %q", ErrInvalidClock, s)
	}

	return Clock{Hour: h, Minute: m}, nil
}

// MustClock is ParseClock for literals; it panics on malformed input.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}

	return c
}

// ClockOf returns the time of day of t in t's location, truncated to the minute.
func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

// String renders the clock as "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes returns the number of minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// On returns the instant at this time of day on the calendar date of day,
// in day's location.
func (c Clock) On(day time.Time) time.Time {
	y, m, d := day.Date()

	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}

	*c = parsed

	return nil
}
