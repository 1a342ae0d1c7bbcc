package service

import (
	"sort"
	"strings"
	"time"

	"agenda/internal/dateutil"
	"agenda/internal/domain"
)

// PendingSummary returns the condensed "pending items" view: one
// representative instance per series, plus every non-series event with
// a non-blank title.
func (s *EventService) PendingSummary(today time.Time) []*domain.Event {
	return SelectRepresentatives(s.store.All(), today)
}

// SelectRepresentatives collapses each repeat group down to a single
// instance. Incomplete instances win over completed ones; within the
// candidate set the instance whose date is nearest to today (absolute
// day distance) is chosen, ties going to the earliest-seen instance.
// The combined list puts events without a time first, then sorts by
// (date, time) with time-less events last within a date.
func SelectRepresentatives(events []*domain.Event, today time.Time) []*domain.Event {
	var out []*domain.Event
	groups := make(map[int64][]*domain.Event)
	var order []int64

	for _, e := range events {
		if strings.TrimSpace(e.Title) == "" {
			continue
		}
		if e.InSeries() {
			if _, seen := groups[e.RepeatID]; !seen {
				order = append(order, e.RepeatID)
			}
			groups[e.RepeatID] = append(groups[e.RepeatID], e)
		} else {
			out = append(out, e)
		}
	}

	for _, rid := range order {
		group := groups[rid]
		candidates := group
		var incomplete []*domain.Event
		for _, e := range group {
			if !e.Completed {
				incomplete = append(incomplete, e)
			}
		}
		if len(incomplete) > 0 {
			candidates = incomplete
		}
		out = append(out, nearest(candidates, today))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return summaryLess(out[i], out[j])
	})
	return out
}

// nearest picks the candidate whose date has the smallest absolute day
// distance to today. Candidates without a parseable date sort as far
// away as possible, so dated instances always win over undated ones.
func nearest(candidates []*domain.Event, today time.Time) *domain.Event {
	best := candidates[0]
	bestDist := distance(best, today)
	for _, e := range candidates[1:] {
		if d := distance(e, today); d < bestDist {
			best = e
			bestDist = d
		}
	}
	return best
}

func distance(e *domain.Event, today time.Time) int {
	t, err := dateutil.Parse(e.Date)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return dateutil.AbsDays(t, today)
}

func summaryLess(a, b *domain.Event) bool {
	// Unscheduled-time items come first.
	if a.Time == "" && b.Time != "" {
		return true
	}
	if a.Time != "" && b.Time == "" {
		return false
	}
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	return a.Time < b.Time
}
