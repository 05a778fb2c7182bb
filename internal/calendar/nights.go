package calendar

import (
	"errors"
	"fmt"
)

// ErrInvalidRange is returned when a range ends before it starts or when one of
// its bounds is missing.
var ErrInvalidRange = errors.New("invalid date range")

// Nights enumerates every calendar day from start to end, both inclusive, in
// ascending order.  A stay of 2024-06-01..2024-06-03 therefore covers three
// nights: the end date's night is consumed by the stay.
func Nights(start, end Date) ([]Date, error) {
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("%w: start and end are required", ErrInvalidRange)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange, end, start)
	}
	nights := make([]Date, 0, Span(start, end))
	for d := start; !d.After(end); d = d.AddDays(1) {
		nights = append(nights, d)
	}
	return nights, nil
}

// Span returns the number of nights in the inclusive range [start, end], or 0
// when end is before start.
func Span(start, end Date) int {
	if end.Before(start) {
		return 0
	}
	// Both values are midnight UTC, so the difference is a whole number of days.
	return int(end.Time().Sub(start.Time()).Hours()/24) + 1
}
