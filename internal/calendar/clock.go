package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
)

var ErrInvalidClock = errors.New("calendar: invalid time of day")

// Clock is a time of day with minute granularity, stored as minutes after
// midnight.
type Clock int

func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock parses "HH:MM" (a single digit hour is accepted).
func ParseClock(value string) (Clock, error) {
	value = strings.TrimSpace(value)
	hh, mm, ok := strings.Cut(value, ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return NewClock(hour, minute), nil
}

// MustClock is for package level constants only.
func MustClock(value string) Clock {
	c, err := ParseClock(value)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Hour() int {
	return int(c) / 60
}

func (c Clock) Minute() int {
	return int(c) % 60
}

func (c Clock) Minutes() int {
	return int(c)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// ClockOf truncates t to the minute.
func ClockOf(t civil.Time) Clock {
	return NewClock(t.Hour, t.Minute)
}

func (c Clock) Civil() civil.Time {
	return civil.Time{Hour: c.Hour(), Minute: c.Minute()}
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
