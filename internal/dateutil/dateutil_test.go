package dateutil

import (
	"testing"
	"time"
)

func TestParseFormat(t *testing.T) {
	t.Run("round-trips a date", func(t *testing.T) {
		parsed, err := Parse("2024-03-07")
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if got := Format(parsed); got != "2024-03-07" {
			t.Errorf("Format = %q, want %q", got, "2024-03-07")
		}
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		if _, err := Parse("03/07/2024"); err == nil {
			t.Error("Parse accepted a non-ISO date")
		}
	})
}

func TestInRange(t *testing.T) {
	cases := []struct {
		date, start, end string
		want             bool
	}{
		{"2024-01-15", "2024-01-01", "2024-01-31", true},
		{"2024-01-01", "2024-01-01", "2024-01-31", true},
		{"2024-01-31", "2024-01-01", "2024-01-31", true},
		{"2023-12-31", "2024-01-01", "2024-01-31", false},
		{"2024-02-01", "2024-01-01", "2024-01-31", false},
	}
	for _, c := range cases {
		if got := InRange(c.date, c.start, c.end); got != c.want {
			t.Errorf("InRange(%q, %q, %q) = %v, want %v", c.date, c.start, c.end, got, c.want)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	day := func(s string) time.Time {
		parsed, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		return parsed
	}

	t.Run("counts forward", func(t *testing.T) {
		if got := DaysBetween(day("2024-01-01"), day("2024-01-08")); got != 7 {
			t.Errorf("DaysBetween = %d, want 7", got)
		}
	})

	t.Run("counts backward as negative", func(t *testing.T) {
		if got := DaysBetween(day("2024-01-08"), day("2024-01-01")); got != -7 {
			t.Errorf("DaysBetween = %d, want -7", got)
		}
	})

	t.Run("ignores the time of day", func(t *testing.T) {
		a := day("2024-01-01").Add(23 * time.Hour)
		b := day("2024-01-02")
		if got := DaysBetween(a, b); got != 1 {
			t.Errorf("DaysBetween = %d, want 1", got)
		}
	})

	t.Run("counts calendar days across DST transitions", func(t *testing.T) {
		ny, err := time.LoadLocation("America/New_York")
		if err != nil {
			t.Skipf("tzdata unavailable: %v", err)
		}

		// US spring-forward 2024-03-10: the wall-clock span from Mar 9
		// to Mar 11 is only 47 hours, but it is still two days.
		a := time.Date(2024, 3, 9, 0, 0, 0, 0, ny)
		b := time.Date(2024, 3, 11, 0, 0, 0, 0, ny)
		if got := DaysBetween(a, b); got != 2 {
			t.Errorf("DaysBetween across spring forward = %d, want 2", got)
		}

		// Fall-back 2024-11-03: a 49-hour span is still two days.
		a = time.Date(2024, 11, 2, 0, 0, 0, 0, ny)
		b = time.Date(2024, 11, 4, 0, 0, 0, 0, ny)
		if got := DaysBetween(a, b); got != 2 {
			t.Errorf("DaysBetween across fall back = %d, want 2", got)
		}
	})

	t.Run("abs distance is symmetric", func(t *testing.T) {
		if got := AbsDays(day("2024-01-08"), day("2024-01-01")); got != 7 {
			t.Errorf("AbsDays = %d, want 7", got)
		}
	})
}

func TestWeekRange(t *testing.T) {
	// 2024-01-10 is a Wednesday.
	wed, err := Parse("2024-01-10")
	if err != nil {
		t.Fatal(err)
	}

	start, end := WeekRange(wed)
	if start != "2024-01-07" {
		t.Errorf("start = %q, want %q (the preceding Sunday)", start, "2024-01-07")
	}
	if end != "2024-01-13" {
		t.Errorf("end = %q, want %q (the following Saturday)", end, "2024-01-13")
	}
}

func TestMonthRange(t *testing.T) {
	t.Run("regular month", func(t *testing.T) {
		d, _ := Parse("2024-04-17")
		start, end := MonthRange(d)
		if start != "2024-04-01" || end != "2024-04-30" {
			t.Errorf("MonthRange = (%q, %q), want (2024-04-01, 2024-04-30)", start, end)
		}
	})

	t.Run("leap february", func(t *testing.T) {
		d, _ := Parse("2024-02-10")
		_, end := MonthRange(d)
		if end != "2024-02-29" {
			t.Errorf("end = %q, want 2024-02-29", end)
		}
	})
}
