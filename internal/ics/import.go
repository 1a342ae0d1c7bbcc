package ics

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"agenda/internal/dateutil"
	"agenda/internal/domain"
)

// Series describes a recurring VEVENT pulled from an iCalendar
// document. The caller materializes instances from the base event.
type Series struct {
	Base       domain.Event
	RepeatType domain.RepeatType
	EndDate    string // empty means no UNTIL was present
}

// Import holds the events recovered from an iCalendar document.
type Import struct {
	Singles []domain.Event
	Series  []Series
}

// Parse reads an iCalendar stream and extracts its VEVENTs.
// Components that cannot be mapped onto an event are skipped.
func Parse(r io.Reader) (*Import, error) {
	dec := ical.NewDecoder(r)

	result := &Import{}
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode calendar: %w", err)
		}

		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			if err := collectVEvent(comp, result); err != nil {
				continue
			}
		}
	}

	return result, nil
}

// ParseICS parses an in-memory iCalendar payload.
func ParseICS(data []byte) (*Import, error) {
	return Parse(bytes.NewReader(data))
}

func collectVEvent(comp *ical.Component, out *Import) error {
	var ev domain.Event
	ev.Category = domain.CategoryPersonal

	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		ev.Title = prop.Value
	}
	if ev.Title == "" {
		return fmt.Errorf("event has no summary")
	}

	if prop := comp.Props.Get(ical.PropDescription); prop != nil {
		ev.Details = prop.Value
	}
	if prop := comp.Props.Get(ical.PropCategories); prop != nil {
		if cat := domain.Category(prop.Value); cat.Valid() {
			ev.Category = cat
		}
	}

	prop := comp.Props.Get(ical.PropDateTimeStart)
	if prop == nil {
		return fmt.Errorf("event has no start")
	}
	start, err := prop.DateTime(time.Local)
	if err != nil {
		return fmt.Errorf("parse start: %w", err)
	}

	ev.Date = dateutil.Format(start)

	allDay := prop.Params.Get(ical.ParamValue) == string(ical.ValueDate)
	if !allDay {
		ev.Time = start.In(time.Local).Format("15:04")
	}

	rruleProp := comp.Props.Get(ical.PropRecurrenceRule)
	if rruleProp == nil {
		out.Singles = append(out.Singles, ev)
		return nil
	}

	series, err := recurrenceSeries(ev, rruleProp.Value)
	if err != nil {
		// An unmappable rule still yields the base occurrence.
		out.Singles = append(out.Singles, ev)
		return nil
	}
	out.Series = append(out.Series, series)
	return nil
}

func recurrenceSeries(base domain.Event, raw string) (Series, error) {
	rule, err := rrule.StrToRRule(raw)
	if err != nil {
		return Series{}, fmt.Errorf("parse recurrence rule: %w", err)
	}

	rt, err := repeatType(rule.OrigOptions.Freq)
	if err != nil {
		return Series{}, err
	}

	series := Series{Base: base, RepeatType: rt}
	if until := rule.OrigOptions.Until; !until.IsZero() {
		series.EndDate = dateutil.Format(until.In(time.Local))
	}
	return series, nil
}

func repeatType(freq rrule.Frequency) (domain.RepeatType, error) {
	switch freq {
	case rrule.DAILY:
		return domain.RepeatDaily, nil
	case rrule.WEEKLY:
		return domain.RepeatWeekly, nil
	case rrule.MONTHLY:
		return domain.RepeatMonthly, nil
	case rrule.YEARLY:
		return domain.RepeatYearly, nil
	}
	return "", fmt.Errorf("unsupported recurrence frequency %v", freq)
}
