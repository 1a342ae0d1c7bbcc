// Package ics converts schedule events to and from iCalendar data.
//
// Repeat groups are exported as a single VEVENT carrying an RRULE, so
// other calendar applications see one recurring event instead of a flat
// list of copies. Events without a date cannot be represented as VEVENTs
// and are skipped.
package ics

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"agenda/internal/dateutil"
	"agenda/internal/domain"
)

const productID = "-//Agenda//Schedule//EN"

// Export builds an iCalendar document from the given events.
func Export(events []*domain.Event) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	singles, groups := partition(events)

	for _, ev := range singles {
		vevent, err := eventToVEvent(ev)
		if err != nil {
			return nil, err
		}
		cal.Children = append(cal.Children, vevent.Component)
	}

	for _, group := range groups {
		vevent, err := groupToVEvent(group)
		if err != nil {
			return nil, err
		}
		cal.Children = append(cal.Children, vevent.Component)
	}

	return cal, nil
}

// ExportICS serializes the events as an iCalendar byte stream.
func ExportICS(events []*domain.Event) ([]byte, error) {
	cal, err := Export(events)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

// partition splits events into standalone ones and repeat groups.
// Dateless events are dropped. Groups come out sorted by date so the
// first member is the series origin.
func partition(events []*domain.Event) ([]*domain.Event, [][]*domain.Event) {
	var singles []*domain.Event
	byRepeat := make(map[int64][]*domain.Event)
	var order []int64

	for _, ev := range events {
		if ev.Date == "" {
			continue
		}
		if !ev.InSeries() {
			singles = append(singles, ev)
			continue
		}
		if _, seen := byRepeat[ev.RepeatID]; !seen {
			order = append(order, ev.RepeatID)
		}
		byRepeat[ev.RepeatID] = append(byRepeat[ev.RepeatID], ev)
	}

	groups := make([][]*domain.Event, 0, len(order))
	for _, rid := range order {
		group := byRepeat[rid]
		sort.Slice(group, func(i, j int) bool { return group[i].Date < group[j].Date })
		groups = append(groups, group)
	}

	return singles, groups
}

func eventToVEvent(ev *domain.Event) (*ical.Event, error) {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, newUID())
	vevent.Props.SetText(ical.PropSummary, ev.Title)

	if ev.Details != "" {
		vevent.Props.SetText(ical.PropDescription, ev.Details)
	}
	vevent.Props.SetText(ical.PropCategories, string(ev.Category))

	start, err := eventStart(ev)
	if err != nil {
		return nil, err
	}

	if ev.Time == "" {
		vevent.Props.SetDate(ical.PropDateTimeStart, start)
	} else {
		vevent.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	}

	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	return vevent, nil
}

// groupToVEvent collapses a date-sorted repeat group into one recurring
// VEVENT whose RRULE spans from the first to the last instance.
func groupToVEvent(group []*domain.Event) (*ical.Event, error) {
	first := group[0]
	vevent, err := eventToVEvent(first)
	if err != nil {
		return nil, err
	}

	freq, err := frequency(first.RepeatType)
	if err != nil {
		return nil, err
	}

	until, err := dateutil.Parse(group[len(group)-1].Date)
	if err != nil {
		return nil, fmt.Errorf("parse series end: %w", err)
	}

	start, err := eventStart(first)
	if err != nil {
		return nil, err
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    freq,
		Dtstart: start.UTC(),
		Until:   until.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("build recurrence rule: %w", err)
	}

	vevent.Props.SetText(ical.PropRecurrenceRule, rule.OrigOptions.RRuleString())
	return vevent, nil
}

// eventStart resolves the local start instant of an event. Events with
// no clock time start at midnight.
func eventStart(ev *domain.Event) (time.Time, error) {
	day, err := dateutil.Parse(ev.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse event date: %w", err)
	}
	if ev.Time == "" {
		return day, nil
	}

	clock, err := time.Parse("15:04", ev.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse event time: %w", err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), 0, 0, time.Local), nil
}

func frequency(rt domain.RepeatType) (rrule.Frequency, error) {
	switch rt {
	case domain.RepeatDaily:
		return rrule.DAILY, nil
	case domain.RepeatWeekly:
		return rrule.WEEKLY, nil
	case domain.RepeatMonthly:
		return rrule.MONTHLY, nil
	case domain.RepeatYearly:
		return rrule.YEARLY, nil
	}
	return 0, fmt.Errorf("unsupported repeat type %q", rt)
}

func newUID() string {
	return uuid.NewString() + "@agenda"
}
