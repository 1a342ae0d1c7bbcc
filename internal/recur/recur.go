// Package recur expands a recurrence rule into the concrete dates of a
// series. It is purely computational: repeat-id allocation and the
// actual inserts happen in the store, which calls this package on
// series creation.
package recur

import (
	"time"

	"agenda/internal/dateutil"
	"agenda/internal/domain"
)

// MaxInstances caps a single expansion regardless of horizon, so a
// daily rule with a far end date cannot generate unbounded work.
const MaxInstances = 1000

// DefaultHorizon bounds open-ended series: when no end date is given,
// expansion stops one year after the origin date.
const DefaultHorizonYears = 1

// Step advances a date by one recurrence interval. Month and year steps
// use calendar arithmetic, so a Jan 31 monthly series lands on whatever
// date the calendar normalizes to.
func Step(t time.Time, rt domain.RepeatType) time.Time {
	switch rt {
	case domain.RepeatDaily:
		return t.AddDate(0, 0, 1)
	case domain.RepeatWeekly:
		return t.AddDate(0, 0, 7)
	case domain.RepeatMonthly:
		return t.AddDate(0, 1, 0)
	case domain.RepeatYearly:
		return t.AddDate(1, 0, 0)
	}
	return t
}

// Dates returns the ordered, strictly increasing date strings of a
// series starting at origin. endDate is an optional YYYY-MM-DD string;
// when empty the default horizon applies. The result never exceeds
// MaxInstances entries.
func Dates(origin string, rt domain.RepeatType, endDate string) ([]string, error) {
	if !rt.Valid() {
		return nil, &domain.ValidationError{Field: "repeatType", Reason: "unknown repeat type"}
	}
	start, err := dateutil.Parse(origin)
	if err != nil {
		return nil, &domain.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}

	var end time.Time
	if endDate == "" {
		end = start.AddDate(DefaultHorizonYears, 0, 0)
	} else {
		end, err = dateutil.Parse(endDate)
		if err != nil {
			return nil, &domain.ValidationError{Field: "endDate", Reason: "must be YYYY-MM-DD"}
		}
	}

	var dates []string
	for cur := start; !cur.After(end) && len(dates) < MaxInstances; cur = Step(cur, rt) {
		dates = append(dates, dateutil.Format(cur))
	}
	return dates, nil
}

// Instances builds the instance records for one expansion call. Every
// instance copies the base event's fields, takes its own date from the
// rule, and carries the shared repeatId. IDs are left unset; the store
// assigns them on insert.
func Instances(base *domain.Event, rt domain.RepeatType, endDate string, repeatID int64) ([]*domain.Event, error) {
	dates, err := Dates(base.Date, rt, endDate)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Event, 0, len(dates))
	for _, d := range dates {
		inst := base.Clone()
		inst.ID = 0
		inst.Date = d
		inst.RepeatID = repeatID
		inst.RepeatType = rt
		inst.IsRepeatInstance = true
		out = append(out, inst)
	}
	return out, nil
}
