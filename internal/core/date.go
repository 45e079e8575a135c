package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDateFormat is returned by Decode for input that is not a
// YYYY-MM-DD calendar date.
var ErrInvalidDateFormat = errors.New("invalid date format")

// Date is a calendar date without time-of-day semantics.
// The embedded time is always midnight UTC so that two Dates with the same
// year, month and day compare equal whatever zone they were built from.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day.
// Out-of-range values are normalized the way time.Date does.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as seen in t's own location.
// No zone conversion happens, so a late-evening local time keeps its day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the local calendar date.
func Today() Date {
	return DateOf(time.Now())
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month (1-12)
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// Equal reports calendar-date equality.
func (d Date) Equal(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month() && d.Day() == o.Day()
}

// Before reports whether d is an earlier calendar day than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// After reports whether d is a later calendar day than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year(), d.Month(), d.Day()+n)
}

// String implements fmt.Stringer using the canonical encoding.
func (d Date) String() string {
	return Encode(d)
}

// LocaleString renders the date as M/D/YYYY, the en-US short form used as the
// timeline group key.
func (d Date) LocaleString() string {
	return fmt.Sprintf("%d/%d/%d", d.Month(), d.Day(), d.Year())
}

// MarshalText encodes the date as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(Encode(d)), nil
}

// UnmarshalText decodes a YYYY-MM-DD date.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := Decode(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON encodes the date as a "YYYY-MM-DD" string. Defined explicitly so
// the promoted time.Time method is not used.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Encode(d) + `"`), nil
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDateFormat, b)
	}
	return d.UnmarshalText([]byte(s))
}

// Encode formats d as YYYY-MM-DD from its own calendar fields.
func Encode(d Date) string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year(), d.Month(), d.Day())
}

// Decode parses a YYYY-MM-DD string into a Date.
//
// The string must hold exactly three numeric tokens separated by '-'. Month is
// 1-based. Values that do not name a real calendar day (month 13, February 30)
// are rejected rather than rolled over.
func Decode(s string) (Date, error) {
	tokens := strings.Split(strings.TrimSpace(s), "-")
	if len(tokens) != 3 {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	var parts [3]int
	for i, tok := range tokens {
		if tok == "" || strings.TrimLeft(tok, "0123456789") != "" {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
		}
		parts[i] = n
	}
	year, month, day := parts[0], parts[1], parts[2]
	if month < 1 || month > 12 || day < 1 || day > DaysIn(year, month) {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	return NewDate(year, month, day), nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year, month int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
