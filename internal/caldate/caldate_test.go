package caldate

import (
	"testing"
	"time"
)

func TestToDays_Epoch(t *testing.T) {
	d := time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	if got := ToDays(d); got != 0 {
		t.Errorf("ToDays(epoch) = %d, want 0", got)
	}
}

func TestToDays_IgnoresTimeOfDay(t *testing.T) {
	noon := time.Date(2020, time.March, 15, 12, 30, 45, 0, time.UTC)
	midnight := time.Date(2020, time.March, 15, 0, 0, 0, 0, time.UTC)
	if ToDays(noon) != ToDays(midnight) {
		t.Error("time-of-day leaked into day-count")
	}
}

func TestRoundTrip_DateToDaysToDate(t *testing.T) {
	// Walk a few decades in 97-day hops; covers leap years and
	// century boundaries without iterating every day.
	start := time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Year() < 2100; d = d.AddDate(0, 0, 97) {
		days := ToDays(d)
		back := ToDate(days)
		if !back.Equal(d) {
			t.Fatalf("round trip failed: %v -> %d -> %v", d, days, back)
		}
	}
}

func TestRoundTrip_DaysToDateToDays(t *testing.T) {
	for days := 0; days < 80_000; days += 611 {
		if got := ToDays(ToDate(days)); got != days {
			t.Fatalf("round trip failed: %d -> %v -> %d", days, ToDate(days), got)
		}
	}
}

func TestParseDays(t *testing.T) {
	days, err := ParseDays("1970-01-02")
	if err != nil {
		t.Fatalf("ParseDays() failed: %v", err)
	}
	if days != 1 {
		t.Errorf("ParseDays(1970-01-02) = %d, want 1", days)
	}
}

func TestParseDays_Malformed(t *testing.T) {
	for _, s := range []string{"", "not-a-date", "1970/01/02", "1970-13-40"} {
		_, err := ParseDays(s)
		if err == nil {
			t.Errorf("ParseDays(%q) succeeded, want FormatError", s)
			continue
		}
		if _, ok := err.(*FormatError); !ok {
			t.Errorf("ParseDays(%q) error type = %T, want *FormatError", s, err)
		}
	}
}

func TestFormat_Sentinels(t *testing.T) {
	if got := Format(EndOfTime); got != "" {
		t.Errorf("Format(EndOfTime) = %q, want empty", got)
	}
	if got := Format(PrototypeDate); got != "PROTOTYPE" {
		t.Errorf("Format(PrototypeDate) = %q, want PROTOTYPE", got)
	}
	if got := Format(0); got != "1970-01-01" {
		t.Errorf("Format(0) = %q, want 1970-01-01", got)
	}
}

func TestSentinelOrdering(t *testing.T) {
	// The catalog sorts prototypes above every dated revision and
	// open-ended intervals above every real date_to.
	today := ToDays(time.Now())
	if today >= EndOfTime {
		t.Fatal("EndOfTime is reachable")
	}
	if PrototypeDate <= EndOfTime {
		t.Fatal("PrototypeDate must sort above EndOfTime")
	}
}
