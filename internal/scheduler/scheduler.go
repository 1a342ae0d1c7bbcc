package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"agenda/config"
	"agenda/internal/domain"
	"agenda/internal/service"
)

// Sender delivers digest text to the user. The CLI daemon prints to
// stdout, but anything that can carry a message fits.
type Sender interface {
	Send(text string) error
}

type Scheduler struct {
	cron   *cron.Cron
	cfg    *config.Config
	events *service.EventService
	sender Sender
}

func New(cfg *config.Config, events *service.EventService) *Scheduler {
	c := cron.New(cron.WithLocation(cfg.Timezone))

	return &Scheduler{
		cron:   c,
		cfg:    cfg,
		events: events,
	}
}

func (s *Scheduler) SetSender(sender Sender) {
	s.sender = sender
}

func (s *Scheduler) Start(ctx context.Context) error {
	spec, err := dailySpec(s.cfg.DigestTime)
	if err != nil {
		return fmt.Errorf("parse digest time: %w", err)
	}
	if _, err := s.cron.AddFunc(spec, s.dailyDigest); err != nil {
		return fmt.Errorf("add daily digest: %w", err)
	}

	s.cron.Start()
	log.Printf("Scheduler started (TZ: %s, digest: %s)", s.cfg.Timezone, s.cfg.DigestTime)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

// dailySpec converts HH:MM into a cron expression firing once a day.
func dailySpec(hhmm string) (string, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return "", fmt.Errorf("invalid time %q: %w", hhmm, err)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

func (s *Scheduler) dailyDigest() {
	if s.sender == nil {
		return
	}

	text := s.digestText(time.Now().In(s.cfg.Timezone))
	if err := s.sender.Send(text); err != nil {
		log.Printf("Error sending daily digest: %v", err)
	}
}

func (s *Scheduler) digestText(now time.Time) string {
	today := s.events.Store().TodayEvents()
	pending := s.events.PendingSummary(now)

	var b strings.Builder
	fmt.Fprintf(&b, "Agenda for %s\n\n", now.Format("Mon, 02 Jan 2006"))

	if len(today) == 0 {
		b.WriteString("No events scheduled today.\n")
	} else {
		fmt.Fprintf(&b, "Today (%d):\n", len(today))
		for _, ev := range today {
			b.WriteString("  " + formatLine(ev) + "\n")
		}
	}

	open := 0
	for _, ev := range pending {
		if !ev.Completed {
			open++
		}
	}
	if open > 0 {
		fmt.Fprintf(&b, "\nOpen items: %d\n", open)
	}

	return b.String()
}

func formatLine(ev *domain.Event) string {
	if ev.Time == "" {
		return ev.Title
	}
	return ev.Time + " " + ev.Title
}
