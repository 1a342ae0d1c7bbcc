package domain

import (
	"regexp"
	"strings"
	"time"
)

type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
	CategorySideWork Category = "sideWork"
	CategorySocial   Category = "social"
	CategoryLove     Category = "love"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryPersonal,
	CategoryWork,
	CategorySideWork,
	CategorySocial,
	CategoryLove,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type RepeatType string

const (
	RepeatDaily   RepeatType = "daily"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
	RepeatYearly  RepeatType = "yearly"
)

func (r RepeatType) Valid() bool {
	switch r {
	case RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly:
		return true
	}
	return false
}

// Event is one schedule record. An event with RepeatID > 0 is an instance
// of a recurring series; all instances of a series share one RepeatID.
// Date and Time may both be empty, which means the event is unscheduled.
type Event struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Date             string     `json:"date,omitempty"` // YYYY-MM-DD local date
	Time             string     `json:"time,omitempty"` // HH:MM 24-hour
	Category         Category   `json:"category"`
	Details          string     `json:"details,omitempty"`
	Completed        bool       `json:"completed"`
	RepeatID         int64      `json:"repeatId,omitempty"`
	RepeatType       RepeatType `json:"repeatType,omitempty"`
	IsRepeatInstance bool       `json:"isRepeatInstance,omitempty"`
	// OriginalRepeatID records the series an instance was detached from
	// by a single-scope edit.
	OriginalRepeatID int64     `json:"originalRepeatId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// IsScheduled reports whether the event has both a date and a time.
func (e *Event) IsScheduled() bool {
	return e.Date != "" && e.Time != ""
}

// IsUnscheduled reports whether the event has neither date nor time.
func (e *Event) IsUnscheduled() bool {
	return e.Date == "" && e.Time == ""
}

// InSeries reports whether the event belongs to a recurring series.
func (e *Event) InSeries() bool {
	return e.RepeatID > 0
}

// Clone returns a copy of the event.
func (e *Event) Clone() *Event {
	c := *e
	return &c
}

var timeRe = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// ValidTime reports whether s is a valid HH:MM 24-hour time string.
func ValidTime(s string) bool {
	return timeRe.MatchString(s)
}

const (
	titleMinLen = 2
	titleMaxLen = 100

	minYear = 1900
	maxYear = 2100
)

// ValidateTitle checks a title in isolation, so partial updates can
// re-validate just the patched field.
func ValidateTitle(title string) error {
	t := strings.TrimSpace(title)
	if t == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	n := len([]rune(t))
	if n < titleMinLen {
		return &ValidationError{Field: "title", Reason: "must be at least 2 characters"}
	}
	if n > titleMaxLen {
		return &ValidationError{Field: "title", Reason: "must be at most 100 characters"}
	}
	return nil
}

// ValidateDate checks an optional YYYY-MM-DD date string.
func ValidateDate(date string) error {
	if date == "" {
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	if y := t.Year(); y < minYear || y > maxYear {
		return &ValidationError{Field: "date", Reason: "year must be between 1900 and 2100"}
	}
	return nil
}

// Validate checks the whole record before it is written. The title is
// required; date and time are optional but must be well-formed when set.
func (e *Event) Validate() error {
	if err := ValidateTitle(e.Title); err != nil {
		return err
	}
	if err := ValidateDate(e.Date); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return &ValidationError{Field: "category", Reason: "unknown category"}
	}
	if e.Time != "" && !ValidTime(e.Time) {
		return &ValidationError{Field: "time", Reason: "must be HH:MM"}
	}
	if e.RepeatID > 0 && !e.RepeatType.Valid() {
		return &ValidationError{Field: "repeatType", Reason: "required for recurring events"}
	}
	return nil
}
