// Package storage is the persistence boundary. The store talks to a
// Backend and never to a concrete engine, so engines are swappable.
package storage

import (
	"agenda/internal/domain"
)

// Backend is the minimal engine contract: auto-id insert, point reads
// and writes, full scan, an indexed batch delete by series, and the
// persisted repeat-id counter. Multi-object atomicity is not required.
type Backend interface {
	// Insert assigns an id and timestamps and persists the event.
	Insert(e *domain.Event) error

	// Get returns (nil, nil) when the id is absent.
	Get(id int64) (*domain.Event, error)

	// Put upserts the event under its existing id.
	Put(e *domain.Event) error

	// Delete removes the event; deleting an absent id is a no-op.
	Delete(id int64) error

	// All returns every persisted event.
	All() ([]*domain.Event, error)

	// DeleteByRepeatID removes the instances of one series. When
	// fromDate is non-empty only instances with date >= fromDate go;
	// the returned slice holds the ids actually removed.
	DeleteByRepeatID(repeatID int64, fromDate string) ([]int64, error)

	// NextRepeatID bumps and returns the persisted series counter.
	// Allocated values are never reused, even after a full-series
	// delete.
	NextRepeatID() (int64, error)

	Close() error
}
