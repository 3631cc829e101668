package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateFormat is the ISO-8601 layout used whenever a Date is written.
const DateFormat = "2006-01-02"

// readDateFormat also accepts single-digit month and day ("2025-7-1").
const readDateFormat = "2006-1-2"

// Date is a calendar day with no time-of-day or zone component.
// The zero Date is not a valid day; use IsZero to detect it.
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns the normalized Date for the given year, month and day.
// Out of range values roll over the way time.Date does (Feb 30 becomes Mar 1/2).
func NewDate(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date { return NewDate(t.Date()) }

// time returns midnight UTC of d.
func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// Time returns midnight UTC of d.
func (d Date) Time() time.Time { return d.time() }

func (d Date) Year() int         { return d.y }
func (d Date) Month() time.Month { return d.m }
func (d Date) Day() int          { return d.d }
func (d Date) IsZero() bool      { return d == Date{} }

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date { return NewDate(d.y, d.m, d.d+n) }

// AddYears returns the same month and day n years later.
//
// A day that does not exist in the target year is normalized forward, so
// 2024-02-29 plus one year is 2025-03-01.
func (d Date) AddYears(n int) Date { return NewDate(d.y+n, d.m, d.d) }

// DaysUntil returns the number of days from d to x (negative when x is before d).
func (d Date) DaysUntil(x Date) int {
	return int(x.time().Sub(d.time()).Hours() / 24)
}

func (d Date) Before(x Date) bool { return d.Compare(x) < 0 }
func (d Date) After(x Date) bool  { return d.Compare(x) > 0 }
func (d Date) Equal(x Date) bool  { return d == x }

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after x.
func (d Date) Compare(x Date) int {
	switch {
	case d.y != x.y:
		return cmpInt(d.y, x.y)
	case d.m != x.m:
		return cmpInt(int(d.m), int(x.m))
	default:
		return cmpInt(d.d, x.d)
	}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string { return d.time().Format(DateFormat) }

// ParseDate parses a YYYY-MM-DD date. It is lenient and accepts "2025-7-1".
func ParseDate(str string) (Date, error) {
	on, err := time.Parse(readDateFormat, str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", str, DateFormat, err)
	}
	return DateOf(on), nil
}

// MustParseDate is like ParseDate but panics on error.
func MustParseDate(str string) Date {
	d, err := ParseDate(str)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// UnmarshalJSON reads a date from a JSON string.
func (d *Date) UnmarshalJSON(bytes []byte) error {
	var str string
	if err := json.Unmarshal(bytes, &str); err != nil {
		return err
	}
	parsed, err := ParseDate(str)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalYAML reads a date from a YAML scalar, quoted or not.
func (d *Date) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("invalid date %v want format %q", raw, DateFormat)
	}
}

var _ json.Marshaler = Date{}
var _ json.Unmarshaler = (*Date)(nil)
