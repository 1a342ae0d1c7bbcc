// Package store owns the canonical event collection. It mirrors the
// persisted backend in an in-memory cache that is updated only after a
// write is confirmed, and publishes typed change notifications after
// every mutation.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"agenda/internal/dateutil"
	"agenda/internal/domain"
	"agenda/internal/recur"
	"agenda/internal/storage"
)

type Store struct {
	mu      sync.RWMutex
	backend storage.Backend
	events  []*domain.Event

	seriesMu map[int64]*sync.Mutex
	smu      sync.Mutex

	notify *notifier
}

// Open loads the backend's collection into the cache. Queries after
// this point never re-read the backend.
func Open(backend storage.Backend) (*Store, error) {
	events, err := backend.All()
	if err != nil {
		return nil, err
	}
	return &Store{
		backend:  backend,
		events:   events,
		seriesMu: make(map[int64]*sync.Mutex),
		notify:   newNotifier(),
	}, nil
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// Subscribe registers a change listener and returns its unsubscribe
// function. Delivery is synchronous and best-effort.
func (s *Store) Subscribe(fn func(Change)) func() {
	return s.notify.subscribe(fn)
}

// LockSeries serializes scoped operations on one series. A future-scope
// edit's delete-then-recreate must run as a single logical unit, so
// callers hold the lock across both steps.
func (s *Store) LockSeries(repeatID int64) (unlock func()) {
	s.smu.Lock()
	mu, ok := s.seriesMu[repeatID]
	if !ok {
		mu = &sync.Mutex{}
		s.seriesMu[repeatID] = mu
	}
	s.smu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// Add validates and persists a new event. The cache is appended only
// after the backend confirms the write. The returned event is a copy,
// like every query result, so callers cannot reach into the cache.
func (s *Store) Add(data domain.Event) (*domain.Event, error) {
	e := &data
	e.ID = 0
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.backend.Insert(e); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()

	s.notify.publish(EventAdded{Event: e})
	return e.Clone(), nil
}

// Patch holds the optional fields of a partial update. Nil means
// "leave unchanged".
type Patch struct {
	Title            *string
	Date             *string
	Time             *string
	Category         *domain.Category
	Details          *string
	Completed        *bool
	RepeatID         *int64
	RepeatType       *domain.RepeatType
	IsRepeatInstance *bool
}

func (p Patch) Apply(e *domain.Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Time != nil {
		e.Time = *p.Time
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Details != nil {
		e.Details = *p.Details
	}
	if p.Completed != nil {
		e.Completed = *p.Completed
	}
	if p.RepeatID != nil {
		e.RepeatID = *p.RepeatID
	}
	if p.RepeatType != nil {
		e.RepeatType = *p.RepeatType
	}
	if p.IsRepeatInstance != nil {
		e.IsRepeatInstance = *p.IsRepeatInstance
	}
}

// Update merges a patch onto an existing event. A patched title must
// re-pass validation; validation failures happen before any write.
func (s *Store) Update(id int64, patch Patch) (*domain.Event, error) {
	s.mu.RLock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.RUnlock()
		return nil, &domain.NotFoundError{ID: id}
	}
	merged := s.events[idx].Clone()
	s.mu.RUnlock()

	patch.Apply(merged)
	merged.UpdatedAt = time.Now()
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	if err := s.backend.Put(merged); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if idx := s.indexOf(id); idx >= 0 {
		s.events[idx] = merged
	}
	s.mu.Unlock()

	s.notify.publish(EventUpdated{ID: id, Event: merged})
	return merged.Clone(), nil
}

// Delete removes one event. Deleting an absent id is a silent no-op:
// no error, no notification.
func (s *Store) Delete(id int64) error {
	s.mu.RLock()
	exists := s.indexOf(id) >= 0
	s.mu.RUnlock()
	if !exists {
		return nil
	}

	if err := s.backend.Delete(id); err != nil {
		return err
	}

	s.mu.Lock()
	if idx := s.indexOf(id); idx >= 0 {
		s.events = append(s.events[:idx], s.events[idx+1:]...)
	}
	s.mu.Unlock()

	s.notify.publish(EventDeleted{ID: id})
	return nil
}

// BatchDeleteResult reports a series-scoped delete.
type BatchDeleteResult struct {
	DeletedCount int
	DeletedIDs   []int64
}

// DeleteByRepeatID removes a series' instances. A non-empty fromDate
// keeps instances strictly before it (the pivot itself is removed;
// dates compare lexicographically because they are zero-padded ISO).
func (s *Store) DeleteByRepeatID(repeatID int64, fromDate string) (BatchDeleteResult, error) {
	ids, err := s.backend.DeleteByRepeatID(repeatID, fromDate)
	if err != nil {
		return BatchDeleteResult{}, err
	}

	removed := make(map[int64]bool, len(ids))
	for _, id := range ids {
		removed[id] = true
	}

	s.mu.Lock()
	kept := s.events[:0]
	for _, e := range s.events {
		if !removed[e.ID] {
			kept = append(kept, e)
		}
	}
	s.events = kept
	s.mu.Unlock()

	s.notify.publish(EventsBatchDeleted{
		RepeatID:     repeatID,
		DeletedCount: len(ids),
		DeletedIDs:   ids,
		FromDate:     fromDate,
	})
	return BatchDeleteResult{DeletedCount: len(ids), DeletedIDs: ids}, nil
}

// NextRepeatID allocates a fresh series id from the persisted counter.
func (s *Store) NextRepeatID() (int64, error) {
	return s.backend.NextRepeatID()
}

// CreateRepeatEvents expands a base event into a new series and inserts
// every instance through the single-add path. The batch is not atomic:
// if an insert fails partway, the already-created prefix stays
// persisted and is returned alongside the error.
func (s *Store) CreateRepeatEvents(base domain.Event, rt domain.RepeatType, endDate string) ([]*domain.Event, error) {
	if base.Date == "" {
		return nil, &domain.ValidationError{Field: "date", Reason: "required for recurring events"}
	}
	probe := base
	probe.RepeatID = 1
	probe.RepeatType = rt
	if err := probe.Validate(); err != nil {
		return nil, err
	}

	repeatID, err := s.backend.NextRepeatID()
	if err != nil {
		return nil, err
	}

	instances, err := recur.Instances(&base, rt, endDate, repeatID)
	if err != nil {
		return nil, err
	}

	created := make([]*domain.Event, 0, len(instances))
	for _, inst := range instances {
		added, err := s.Add(*inst)
		if err != nil {
			return created, err
		}
		created = append(created, added)
	}

	s.notify.publish(RepeatEventsCreated{
		RepeatID:   repeatID,
		Events:     created,
		RepeatType: rt,
		EndDate:    endDate,
	})
	return created, nil
}

// indexOf must be called with the mutex held.
func (s *Store) indexOf(id int64) int {
	for i, e := range s.events {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// === Queries (pure filters over the cache) ===

func (s *Store) Get(id int64) *domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.events[idx].Clone()
	}
	return nil
}

func (s *Store) All() []*domain.Event {
	return s.filter(func(*domain.Event) bool { return true })
}

func (s *Store) EventsByDate(date string) []*domain.Event {
	return s.filter(func(e *domain.Event) bool { return e.Date == date })
}

func (s *Store) EventsByRange(start, end string) []*domain.Event {
	return s.filter(func(e *domain.Event) bool {
		return e.Date != "" && dateutil.InRange(e.Date, start, end)
	})
}

func (s *Store) EventsByCategory(c domain.Category) []*domain.Event {
	return s.filter(func(e *domain.Event) bool { return e.Category == c })
}

func (s *Store) Unscheduled() []*domain.Event {
	return s.filter(func(e *domain.Event) bool { return e.IsUnscheduled() })
}

func (s *Store) Completed() []*domain.Event {
	return s.filter(func(e *domain.Event) bool { return e.Completed })
}

func (s *Store) Pending() []*domain.Event {
	return s.filter(func(e *domain.Event) bool { return !e.Completed })
}

// RepeatGroup returns a series' instances ordered by date.
func (s *Store) RepeatGroup(repeatID int64) []*domain.Event {
	group := s.filter(func(e *domain.Event) bool { return e.RepeatID == repeatID })
	sort.SliceStable(group, func(i, j int) bool { return group[i].Date < group[j].Date })
	return group
}

// RepeatEvents returns every instance that belongs to any series.
func (s *Store) RepeatEvents() []*domain.Event {
	return s.filter(func(e *domain.Event) bool { return e.InSeries() })
}

// Search matches the query case-insensitively against title and details.
func (s *Store) Search(query string) []*domain.Event {
	q := strings.ToLower(query)
	return s.filter(func(e *domain.Event) bool {
		return strings.Contains(strings.ToLower(e.Title), q) ||
			strings.Contains(strings.ToLower(e.Details), q)
	})
}

func (s *Store) TodayEvents() []*domain.Event {
	return s.EventsByDate(dateutil.Today())
}

func (s *Store) WeekEvents() []*domain.Event {
	start, end := dateutil.WeekRange(time.Now())
	return s.EventsByRange(start, end)
}

func (s *Store) MonthEvents() []*domain.Event {
	start, end := dateutil.MonthRange(time.Now())
	return s.EventsByRange(start, end)
}

func (s *Store) filter(keep func(*domain.Event) bool) []*domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Event
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Stats summarizes the collection.
type Stats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	Unscheduled    int `json:"unscheduled"`
	Repeat         int `json:"repeat"`
	CompletionRate int `json:"completionRate"`
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Total: len(s.events)}
	for _, e := range s.events {
		if e.Completed {
			st.Completed++
		}
		if e.IsUnscheduled() {
			st.Unscheduled++
		}
		if e.InSeries() {
			st.Repeat++
		}
	}
	st.Pending = st.Total - st.Completed
	if st.Total > 0 {
		st.CompletionRate = int(float64(st.Completed)/float64(st.Total)*100 + 0.5)
	}
	return st
}
