package service

import (
	"agenda/internal/domain"
	"agenda/internal/store"
)

// Scope is the breadth of an edit or delete on a recurring series.
type Scope string

const (
	// ScopeSingle targets just the chosen instance.
	ScopeSingle Scope = "single"
	// ScopeFuture targets the chosen instance and every later one.
	// The pivot date is inclusive.
	ScopeFuture Scope = "future"
	// ScopeAll targets the whole series. Valid for delete only.
	ScopeAll Scope = "all"
)

type EventService struct {
	store *store.Store
}

func NewEventService(s *store.Store) *EventService {
	return &EventService{store: s}
}

func (s *EventService) Store() *store.Store {
	return s.store
}

// CreateRequest describes a new event, optionally recurring.
type CreateRequest struct {
	Event      domain.Event
	Repeat     bool
	RepeatType domain.RepeatType
	RepeatEnd  string // optional YYYY-MM-DD; empty means default horizon
}

// Create adds a single event or expands a new series.
func (s *EventService) Create(req CreateRequest) ([]*domain.Event, error) {
	if !req.Repeat {
		e, err := s.store.Add(req.Event)
		if err != nil {
			return nil, err
		}
		return []*domain.Event{e}, nil
	}
	return s.store.CreateRepeatEvents(req.Event, req.RepeatType, req.RepeatEnd)
}

// EditRequest carries everything a scoped edit needs as explicit
// values; there is no ambient "currently selected event" state.
type EditRequest struct {
	EventID int64
	Scope   Scope
	Fields  store.Patch
	// RepeatType optionally replaces the series' rule on a future-scope
	// edit. Zero value keeps the original rule.
	RepeatType domain.RepeatType
	// RepeatEnd optionally sets the rebuilt series' end date.
	RepeatEnd string
}

// EditResult reports what a scoped edit produced.
type EditResult struct {
	// Updated is set for plain (non-series) updates.
	Updated *domain.Event
	// Detached is the new standalone record of a single-scope edit.
	Detached *domain.Event
	// NewSeries holds the rebuilt tail of a future-scope edit. It may
	// be non-nil and empty-adjacent: a series that ends immediately is
	// valid.
	NewSeries []*domain.Event
	// NewRepeatID is the tail's freshly allocated series id.
	NewRepeatID int64
}

// Edit applies a scoped edit. For events outside any series the scope
// is ignored and the patch is applied directly.
//
// single: a new standalone record is created from the edited fields
// with repeatId 0 and originalRepeatId pointing at the source series,
// then the original instance is deleted so the date does not show a
// duplicate.
//
// future: every instance with date >= the pivot instance's date is
// removed, then the series tail is rebuilt from the edited fields under
// a new repeatId starting at the pivot date. Earlier instances keep the
// old repeatId untouched.
func (s *EventService) Edit(req EditRequest) (EditResult, error) {
	ev := s.store.Get(req.EventID)
	if ev == nil {
		return EditResult{}, &domain.NotFoundError{ID: req.EventID}
	}

	if !ev.InSeries() {
		updated, err := s.store.Update(req.EventID, req.Fields)
		if err != nil {
			return EditResult{}, err
		}
		return EditResult{Updated: updated}, nil
	}

	switch req.Scope {
	case ScopeSingle:
		return s.editSingle(ev, req)
	case ScopeFuture:
		return s.editFuture(ev, req)
	default:
		return EditResult{}, &domain.ValidationError{Field: "scope", Reason: "must be single or future"}
	}
}

func (s *EventService) editSingle(ev *domain.Event, req EditRequest) (EditResult, error) {
	detached := ev.Clone()
	detached.ID = 0
	req.Fields.Apply(detached)
	detached.RepeatID = 0
	detached.RepeatType = ""
	detached.IsRepeatInstance = false
	detached.OriginalRepeatID = ev.RepeatID

	added, err := s.store.Add(*detached)
	if err != nil {
		return EditResult{}, err
	}
	if err := s.store.Delete(ev.ID); err != nil {
		return EditResult{}, err
	}
	return EditResult{Detached: added}, nil
}

func (s *EventService) editFuture(ev *domain.Event, req EditRequest) (EditResult, error) {
	unlock := s.store.LockSeries(ev.RepeatID)
	defer unlock()

	if _, err := s.store.DeleteByRepeatID(ev.RepeatID, ev.Date); err != nil {
		return EditResult{}, err
	}

	base := ev.Clone()
	base.ID = 0
	req.Fields.Apply(base)
	base.Date = ev.Date
	base.OriginalRepeatID = 0

	rt := req.RepeatType
	if rt == "" {
		rt = ev.RepeatType
	}
	if rt == "" {
		rt = domain.RepeatWeekly
	}

	created, err := s.store.CreateRepeatEvents(*base, rt, req.RepeatEnd)
	if err != nil {
		return EditResult{NewSeries: created}, err
	}
	var rid int64
	if len(created) > 0 {
		rid = created[0].RepeatID
	}
	return EditResult{NewSeries: created, NewRepeatID: rid}, nil
}

// DeleteRequest carries a scoped delete as explicit values.
type DeleteRequest struct {
	EventID int64
	Scope   Scope
}

// DeleteResult reports what a scoped delete removed.
type DeleteResult struct {
	DeletedCount int
	DeletedIDs   []int64
}

// Delete applies a scoped delete. Deleting a plain event, or a series
// instance with ScopeSingle, removes just that record. ScopeFuture
// removes the instance and every later one (pivot inclusive); earlier
// instances survive. ScopeAll removes the whole series. A series left
// with zero instances is fine.
func (s *EventService) Delete(req DeleteRequest) (DeleteResult, error) {
	ev := s.store.Get(req.EventID)
	if ev == nil {
		return DeleteResult{}, nil
	}

	if !ev.InSeries() || req.Scope == ScopeSingle || req.Scope == "" {
		if err := s.store.Delete(req.EventID); err != nil {
			return DeleteResult{}, err
		}
		return DeleteResult{DeletedCount: 1, DeletedIDs: []int64{req.EventID}}, nil
	}

	unlock := s.store.LockSeries(ev.RepeatID)
	defer unlock()

	fromDate := ""
	if req.Scope == ScopeFuture {
		fromDate = ev.Date
	}
	res, err := s.store.DeleteByRepeatID(ev.RepeatID, fromDate)
	if err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{DeletedCount: res.DeletedCount, DeletedIDs: res.DeletedIDs}, nil
}

// SetCompleted toggles an event's completion flag.
func (s *EventService) SetCompleted(id int64, done bool) (*domain.Event, error) {
	return s.store.Update(id, store.Patch{Completed: &done})
}
