// Package caldate converts between calendar dates and signed integer
// day-counts.
//
// All interval arithmetic in the catalog operates on day-counts, never on
// time.Time values. Calendar conversion happens only at the presentation
// edge (parsing user input, formatting output).
//
// Two sentinel day-counts are reserved above every reachable calendar date:
//
//   - EndOfTime: an open-ended validity interval ("valid forever")
//   - PrototypeDate: a revision that is not yet effective
//
// Sorting revisions by date_from_days therefore places a prototype above
// every dated revision, which is exactly the ordering the catalog relies on.
package caldate

import (
	"fmt"
	"time"
)

const (
	// EndOfTime marks an open-ended date_to. Strictly greater than any
	// real calendar day-count (999,999,999 days is roughly year 2.7M).
	EndOfTime = 999_999_999

	// PrototypeDate marks a revision that has not shipped yet.
	// Strictly greater than EndOfTime so prototypes sort newest.
	PrototypeDate = EndOfTime + 1

	// PrototypeIter is the reserved iteration carried by a prototype
	// revision. Real iterations are small non-negative integers.
	PrototypeIter = 1_000_000
)

// layout is the only calendar form accepted and produced.
const layout = "2006-01-02"

// epoch is day 0. All day-counts are days elapsed since this instant in UTC.
var epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// FormatError reports a date string that does not parse as YYYY-MM-DD.
type FormatError struct {
	Input string
	cause error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed date %q (want YYYY-MM-DD)", e.Input)
}

func (e *FormatError) Unwrap() error { return e.cause }

// ToDays converts a calendar date to its day-count. The time-of-day and
// location of t are ignored; only the calendar date matters.
func ToDays(t time.Time) int {
	y, m, d := t.Date()
	utc := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(utc.Sub(epoch).Hours() / 24)
}

// ToDate converts a day-count back to a calendar date at UTC midnight.
// Sentinel day-counts have no calendar form; callers must check for them
// first (Format does).
func ToDate(days int) time.Time {
	return epoch.AddDate(0, 0, days)
}

// ParseDays parses a YYYY-MM-DD string into a day-count.
func ParseDays(s string) (int, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, &FormatError{Input: s, cause: err}
	}
	return ToDays(t), nil
}

// Format renders a day-count for display. EndOfTime renders as the empty
// string and PrototypeDate as "PROTOTYPE"; everything else is YYYY-MM-DD.
func Format(days int) string {
	switch {
	case days >= PrototypeDate:
		return "PROTOTYPE"
	case days >= EndOfTime:
		return ""
	default:
		return ToDate(days).Format(layout)
	}
}
