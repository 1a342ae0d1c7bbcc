package scheduler

import (
	"strings"
	"testing"
	"time"

	"agenda/config"
	"agenda/internal/dateutil"
	"agenda/internal/domain"
	"agenda/internal/service"
	"agenda/internal/storage"
	"agenda/internal/store"
)

func TestDailySpec(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"09:00", "0 9 * * *"},
		{"21:30", "30 21 * * *"},
		{"00:00", "0 0 * * *"},
	}
	for _, c := range cases {
		got, err := dailySpec(c.in)
		if err != nil {
			t.Errorf("dailySpec(%q) failed: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("dailySpec(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	if _, err := dailySpec("9am"); err == nil {
		t.Error("dailySpec accepted a non-HH:MM value")
	}
}

func TestDigestText(t *testing.T) {
	s, err := store.Open(storage.NewMemory())
	if err != nil {
		t.Fatal(err)
	}
	svc := service.NewEventService(s)

	today := dateutil.Today()
	if _, err := s.Add(domain.Event{Title: "Morning run", Date: today, Time: "07:00", Category: domain.CategoryPersonal}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(domain.Event{Title: "Ship release", Date: today, Category: domain.CategoryWork}); err != nil {
		t.Fatal(err)
	}

	sched := New(&config.Config{Timezone: time.Local, DigestTime: "09:00"}, svc)
	text := sched.digestText(time.Now())

	if !strings.Contains(text, "Today (2):") {
		t.Errorf("digest missing today count:\n%s", text)
	}
	if !strings.Contains(text, "07:00 Morning run") {
		t.Errorf("digest missing timed line:\n%s", text)
	}
	if !strings.Contains(text, "Ship release") {
		t.Errorf("digest missing time-less line:\n%s", text)
	}
	if !strings.Contains(text, "Open items: 2") {
		t.Errorf("digest missing open count:\n%s", text)
	}
}
