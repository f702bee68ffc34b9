// Package window produces the month cutoffs that define incremental time
// windows over a chronologically ordered record stream.
package window

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"
)

// Month is a calendar month. Month is 1-based.
type Month struct {
	Year  int
	Month int
}

// Index linearizes m so that consecutive months differ by one.
func (m Month) Index() int {
	return 12*m.Year + m.Month - 1
}

// FromIndex is the inverse of Month.Index.
func FromIndex(ym int) Month {
	return Month{Year: ym / 12, Month: ym%12 + 1}
}

// Before reports whether m is strictly earlier than o.
func (m Month) Before(o Month) bool {
	return m.Index() < o.Index()
}

// Time returns the first instant of the month in UTC.
func (m Month) Time() time.Time {
	return time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
}

func (m Month) String() string {
	return fmt.Sprintf("%d-%d", m.Year, m.Month)
}

// ParseMonth parses "2012-1" or "2012-01".
func ParseMonth(s string) (Month, error) {
	year, month, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Month{}, fmt.Errorf("invalid month %q, expected YEAR-MONTH", s)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return Month{}, fmt.Errorf("invalid year in %q: %w", s, err)
	}
	mo, err := strconv.Atoi(month)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month in %q: %w", s, err)
	}
	m := Month{Year: y, Month: mo}
	if !m.valid() {
		return Month{}, fmt.Errorf("month out of range in %q", s)
	}
	return m, nil
}

func (m Month) valid() bool {
	return m.Month >= 1 && m.Month <= 12
}

// InvalidRangeError is returned when a range does not have its start
// strictly before its end, or a month is out of 1..12.
type InvalidRangeError struct {
	Start Month
	End   Month
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid month range %s to %s", e.Start, e.End)
}

// Sequence yields every month from (startYear, startMonth) inclusive up to
// (endYear, endMonth) exclusive. The returned sequence can be ranged over
// any number of times.
func Sequence(startMonth, startYear, endMonth, endYear int) (iter.Seq[Month], error) {
	start := Month{Year: startYear, Month: startMonth}
	end := Month{Year: endYear, Month: endMonth}
	if !start.valid() || !end.valid() || !start.Before(end) {
		return nil, &InvalidRangeError{Start: start, End: end}
	}

	from, to := start.Index(), end.Index()
	return func(yield func(Month) bool) {
		for ym := from; ym < to; ym++ {
			if !yield(FromIndex(ym)) {
				return
			}
		}
	}, nil
}

// Range is the half-open window [Start, End).
type Range struct {
	Start Month
	End   Month
}

// Label renders the range as "2012-1 to 2013-4".
func (r Range) Label() string {
	return fmt.Sprintf("%s to %s", r.Start, r.End)
}

// Empty reports whether the range covers no month at all.
func (r Range) Empty() bool {
	return !r.Start.Before(r.End)
}

// Contains reports whether t falls inside [Start, End).
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start.Time()) && t.Before(r.End.Time())
}

// Growing yields the cumulative windows [start, m) for every month m of
// Sequence(start, end). The first window is empty.
func Growing(start, end Month) (iter.Seq[Range], error) {
	months, err := Sequence(start.Month, start.Year, end.Month, end.Year)
	if err != nil {
		return nil, err
	}
	return func(yield func(Range) bool) {
		for m := range months {
			if !yield(Range{Start: start, End: m}) {
				return
			}
		}
	}, nil
}
