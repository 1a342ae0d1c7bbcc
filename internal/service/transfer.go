package service

import (
	"encoding/json"
	"fmt"
	"time"

	"agenda/internal/domain"
	"agenda/internal/store"
)

const envelopeVersion = "1.0"

// Envelope is the export format. Stats travel along so an exported
// file is self-describing.
type Envelope struct {
	Version    string          `json:"version"`
	ExportDate time.Time       `json:"exportDate"`
	Events     []*domain.Event `json:"events"`
	Stats      store.Stats     `json:"stats"`
}

// Conflict pairs an incoming event with the existing one it collides
// with. Collision is an exact match on (date, title, time).
type Conflict struct {
	Imported *domain.Event `json:"imported"`
	Existing *domain.Event `json:"existing"`
}

// ImportPlan is the dry-run result of an import: nothing has been
// written yet.
type ImportPlan struct {
	EventsToImport []*domain.Event `json:"eventsToImport"`
	Conflicts      []Conflict      `json:"conflicts"`
	Total          int             `json:"total"`
}

// SkippedEvent records one event that failed during ExecuteImport.
type SkippedEvent struct {
	Event *domain.Event `json:"event"`
	Error string        `json:"error"`
}

// ImportReport summarizes an executed import.
type ImportReport struct {
	Imported []*domain.Event `json:"imported"`
	Skipped  []SkippedEvent  `json:"skipped"`
}

type TransferService struct {
	store *store.Store
}

func NewTransferService(s *store.Store) *TransferService {
	return &TransferService{store: s}
}

// Export snapshots the whole collection into an envelope. Events is
// never nil: an empty collection exports as an empty array, so the
// envelope always round-trips through PreviewImport.
func (t *TransferService) Export() Envelope {
	events := t.store.All()
	if events == nil {
		events = []*domain.Event{}
	}
	return Envelope{
		Version:    envelopeVersion,
		ExportDate: time.Now(),
		Events:     events,
		Stats:      t.store.Stats(),
	}
}

// ExportJSON renders the envelope as indented JSON.
func (t *TransferService) ExportJSON() ([]byte, error) {
	data, err := json.MarshalIndent(t.Export(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return data, nil
}

// PreviewImport parses an envelope and splits its events into
// importable ones and conflicts, without mutating anything. A separate
// ExecuteImport call performs the writes.
func (t *TransferService) PreviewImport(data []byte) (*ImportPlan, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &domain.ValidationError{Field: "import", Reason: "invalid JSON envelope"}
	}
	if env.Events == nil {
		return nil, &domain.ValidationError{Field: "import", Reason: "missing events array"}
	}
	return t.Plan(env.Events), nil
}

// Plan runs conflict detection against the current collection.
func (t *TransferService) Plan(incoming []*domain.Event) *ImportPlan {
	existing := t.store.All()
	plan := &ImportPlan{Total: len(incoming)}

	for _, ev := range incoming {
		var hit *domain.Event
		for _, ex := range existing {
			if ex.Date == ev.Date && ex.Title == ev.Title && ex.Time == ev.Time {
				hit = ex
				break
			}
		}
		if hit != nil {
			plan.Conflicts = append(plan.Conflicts, Conflict{Imported: ev, Existing: hit})
		} else {
			plan.EventsToImport = append(plan.EventsToImport, ev)
		}
	}
	return plan
}

// ExecuteImport inserts the given events through the store's normal add
// path, stripping incoming ids so the store assigns fresh ones. A
// failing event is reported and skipped; the rest continue.
func (t *TransferService) ExecuteImport(events []*domain.Event) ImportReport {
	var report ImportReport
	for _, ev := range events {
		data := *ev
		data.ID = 0
		added, err := t.store.Add(data)
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedEvent{Event: ev, Error: err.Error()})
			continue
		}
		report.Imported = append(report.Imported, added)
	}
	return report
}
