// Package calendar provides a day-granularity date type used for inventory
// nights and reservation ranges.  A Date never carries a time of day or a
// time zone: every value is stored as midnight UTC so that two dates naming
// the same calendar day always compare equal.
package calendar

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the wire and storage format of a Date.
const Layout = "2006-01-02"

// ErrInvalidDate is returned when a string cannot be read as a calendar date.
var ErrInvalidDate = errors.New("invalid date")

// Date is a calendar day.  The zero value is not a valid day; use IsZero to
// detect it.
type Date struct {
	t time.Time
}

// New builds a Date from its components.  Out-of-range values are normalised
// the same way time.Date does (e.g. June 31 becomes July 1).
func New(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime returns the calendar day of t as observed in t's own location.
// The clock reading and the offset are discarded.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return New(y, m, d)
}

// MinYear is the first year a MySQL DATE column supports.  Earlier years are
// rejected, which also keeps "0001-01-01" from parsing into the zero Date.
const MinYear = 1000

// Parse reads a date in YYYY-MM-DD form.  Full RFC 3339 timestamps are also
// accepted; they are reduced to the calendar day written in the timestamp so
// that "2024-06-01T23:30:00-05:00" is June 1st, not June 2nd.
func Parse(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty value", ErrInvalidDate)
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
	}
	d := FromTime(t)
	if d.t.Year() < MinYear {
		return Date{}, fmt.Errorf("%w: year before %d: %q", ErrInvalidDate, MinYear, s)
	}
	return d, nil
}

// MustParse is Parse for constants and tests.  It panics on error.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Time returns the date as midnight UTC.
func (d Date) Time() time.Time { return d.t }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d.t.IsZero() }

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(Layout)
}

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool { return d.t.After(o.t) }

// Equal reports whether d and o are the same day.
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// MarshalJSON encodes the date as a "YYYY-MM-DD" string, or null when zero.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts anything Parse accepts.  null leaves d unchanged.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	parsed, err := Parse(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner for DATE columns.  With parseTime=true the MySQL
// driver hands over time.Time, otherwise the raw bytes.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = FromTime(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	case nil:
		*d = Date{}
		return nil
	}
	return fmt.Errorf("calendar: cannot scan %T into Date", src)
}

func (d *Date) scanString(s string) error {
	// DATETIME columns read without parseTime arrive as "YYYY-MM-DD HH:MM:SS".
	if len(s) > len(Layout) && s[len(Layout)] == ' ' {
		s = s[:len(Layout)]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.  Dates are written as "YYYY-MM-DD" strings so
// that the session time zone of the connection cannot shift them.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}
