package store

import (
	"log"
	"sync"

	"agenda/internal/domain"
)

// Change is the closed set of notifications the store publishes. The
// view layer subscribes to decide how much to refresh.
type Change interface {
	isChange()
}

type EventAdded struct {
	Event *domain.Event
}

type EventUpdated struct {
	ID    int64
	Event *domain.Event
}

type EventDeleted struct {
	ID int64
}

type EventsBatchDeleted struct {
	RepeatID     int64
	DeletedCount int
	DeletedIDs   []int64
	FromDate     string
}

type RepeatEventsCreated struct {
	RepeatID   int64
	Events     []*domain.Event
	RepeatType domain.RepeatType
	EndDate    string
}

func (EventAdded) isChange()          {}
func (EventUpdated) isChange()        {}
func (EventDeleted) isChange()        {}
func (EventsBatchDeleted) isChange()  {}
func (RepeatEventsCreated) isChange() {}

// notifier dispatches changes synchronously to every subscriber. A
// panicking subscriber is logged and skipped; it never aborts the
// mutation or starves the remaining subscribers.
type notifier struct {
	mu   sync.Mutex
	subs map[int]func(Change)
	next int
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]func(Change))}
}

func (n *notifier) subscribe(fn func(Change)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *notifier) publish(c Change) {
	n.mu.Lock()
	fns := make([]func(Change), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		deliver(fn, c)
	}
}

func deliver(fn func(Change), c Change) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("store: subscriber panic: %v", r)
		}
	}()
	fn(c)
}
