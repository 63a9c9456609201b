package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var ErrInvalidDate = errors.New("calendar: invalid date")

// Date is a calendar day with no time of day and no timezone. It wraps
// civil.Date and adds the business-week rules planning relies on.
type Date struct {
	d civil.Date
}

func NewDate(year int, month time.Month, day int) Date {
	return FromCivil(civil.DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC)))
}

func FromCivil(d civil.Date) Date {
	return Date{d: d}
}

// DateOf returns the calendar day of t as seen in t's own location.
func DateOf(t time.Time) Date {
	return Date{d: civil.DateOf(t)}
}

// Today returns the calendar day of now in loc.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now.In(loc))
}

func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	d, err := civil.ParseDate(value)
	if err != nil || !d.IsValid() {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return Date{d: d}, nil
}

func (d Date) Civil() civil.Date {
	return d.d
}

func (d Date) IsZero() bool {
	return d.d == civil.Date{}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.d.String()
}

func (d Date) Weekday() time.Weekday {
	return d.d.In(time.UTC).Weekday()
}

// IsBusinessDay reports whether d falls Monday through Friday.
func (d Date) IsBusinessDay() bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func (d Date) IsFriday() bool {
	return d.Weekday() == time.Friday
}

// AddDays moves d by n calendar days, weekends included.
func (d Date) AddDays(n int) Date {
	return Date{d: d.d.AddDays(n)}
}

func (d Date) Equal(other Date) bool {
	return d.d == other.d
}

func (d Date) Before(other Date) bool {
	return d.d.Before(other.d)
}

func (d Date) After(other Date) bool {
	return d.d.After(other.d)
}

// DaysSince returns the signed number of calendar days from other to d.
func (d Date) DaysSince(other Date) int {
	return d.d.DaysSince(other.d)
}

// At places clock c on day d in loc.
func (d Date) At(c Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateTime{Date: d.d, Time: c.Civil()}.In(loc)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MondayOf returns the Monday of d's week. Sunday belongs to the week that
// started six days earlier.
func MondayOf(d Date) Date {
	offset := int(d.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return d.AddDays(-offset)
}
