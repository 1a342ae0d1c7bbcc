package service

import (
	"testing"

	"agenda/internal/domain"
	"agenda/internal/storage"
	"agenda/internal/store"
)

func newService(t *testing.T) *EventService {
	t.Helper()
	s, err := store.Open(storage.NewMemory())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return NewEventService(s)
}

// seedSeries creates a four-instance weekly series and returns the
// service plus the instances in date order.
func seedSeries(t *testing.T) (*EventService, []*domain.Event) {
	t.Helper()
	svc := newService(t)

	created, err := svc.Create(CreateRequest{
		Event: domain.Event{
			Title:    "Standup",
			Date:     "2024-01-01",
			Time:     "09:30",
			Category: domain.CategoryWork,
		},
		Repeat:     true,
		RepeatType: domain.RepeatWeekly,
		RepeatEnd:  "2024-01-22",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(created) != 4 {
		t.Fatalf("seed created %d instances, want 4", len(created))
	}
	return svc, created
}

func TestCreate(t *testing.T) {
	t.Run("plain event", func(t *testing.T) {
		svc := newService(t)
		created, err := svc.Create(CreateRequest{
			Event: domain.Event{Title: "Dentist", Date: "2024-05-01", Category: domain.CategoryPersonal},
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if len(created) != 1 || created[0].InSeries() {
			t.Errorf("Create = %+v, want one standalone event", created)
		}
	})

	t.Run("recurring needs a date", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.Create(CreateRequest{
			Event:      domain.Event{Title: "Floating", Category: domain.CategoryPersonal},
			Repeat:     true,
			RepeatType: domain.RepeatDaily,
		})
		if !domain.IsValidation(err) {
			t.Errorf("Create = %v, want a validation error", err)
		}
	})
}

func TestEditPlainEvent(t *testing.T) {
	svc := newService(t)
	created, err := svc.Create(CreateRequest{
		Event: domain.Event{Title: "Dentist", Date: "2024-05-01", Category: domain.CategoryPersonal},
	})
	if err != nil {
		t.Fatal(err)
	}

	newTitle := "Dentist (rescheduled)"
	res, err := svc.Edit(EditRequest{
		EventID: created[0].ID,
		Scope:   ScopeFuture, // scope is ignored for non-series events
		Fields:  store.Patch{Title: &newTitle},
	})
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if res.Updated == nil || res.Updated.Title != newTitle {
		t.Errorf("Edit = %+v, want a plain update", res)
	}
}

func TestEditSingleScope(t *testing.T) {
	svc, series := seedSeries(t)
	target := series[2] // 2024-01-15
	rid := target.RepeatID

	newTime := "14:00"
	res, err := svc.Edit(EditRequest{
		EventID: target.ID,
		Scope:   ScopeSingle,
		Fields:  store.Patch{Time: &newTime},
	})
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}

	detached := res.Detached
	if detached == nil {
		t.Fatal("single-scope edit returned no detached event")
	}
	if detached.Time != "14:00" {
		t.Errorf("detached Time = %q, want 14:00", detached.Time)
	}
	if detached.InSeries() || detached.IsRepeatInstance {
		t.Errorf("detached event still in a series: %+v", detached)
	}
	if detached.OriginalRepeatID != rid {
		t.Errorf("OriginalRepeatID = %d, want %d", detached.OriginalRepeatID, rid)
	}

	// The original instance is gone so the date shows no duplicate.
	if svc.Store().Get(target.ID) != nil {
		t.Error("original instance survived a single-scope edit")
	}

	remaining := svc.Store().RepeatGroup(rid)
	if len(remaining) != 3 {
		t.Fatalf("series has %d instances, want 3", len(remaining))
	}
	for _, ev := range remaining {
		if ev.Date == "2024-01-15" {
			t.Error("series still owns the detached date")
		}
		if ev.Time != "09:30" {
			t.Errorf("sibling instance time changed to %q", ev.Time)
		}
	}
}

func TestEditFutureScope(t *testing.T) {
	svc, series := seedSeries(t)
	target := series[2] // 2024-01-15
	oldRID := target.RepeatID

	newTitle := "Standup (new room)"
	res, err := svc.Edit(EditRequest{
		EventID:   target.ID,
		Scope:     ScopeFuture,
		Fields:    store.Patch{Title: &newTitle},
		RepeatEnd: "2024-01-29",
	})
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}

	if res.NewRepeatID == 0 || res.NewRepeatID == oldRID {
		t.Errorf("NewRepeatID = %d, want a fresh series id", res.NewRepeatID)
	}

	// Earlier instances keep the old series and the old title.
	old := svc.Store().RepeatGroup(oldRID)
	if len(old) != 2 {
		t.Fatalf("old series has %d instances, want 2", len(old))
	}
	if old[0].Date != "2024-01-01" || old[1].Date != "2024-01-08" {
		t.Errorf("old series dates = %q, %q", old[0].Date, old[1].Date)
	}
	for _, ev := range old {
		if ev.Title != "Standup" {
			t.Errorf("old instance title changed to %q", ev.Title)
		}
	}

	// The tail restarts at the pivot date under the new id.
	tail := svc.Store().RepeatGroup(res.NewRepeatID)
	if len(tail) != 3 {
		t.Fatalf("new series has %d instances, want 3", len(tail))
	}
	wantDates := []string{"2024-01-15", "2024-01-22", "2024-01-29"}
	for i, ev := range tail {
		if ev.Date != wantDates[i] {
			t.Errorf("tail instance %d date = %q, want %q", i, ev.Date, wantDates[i])
		}
		if ev.Title != newTitle {
			t.Errorf("tail instance %d title = %q", i, ev.Title)
		}
	}
}

func TestEditUnknownEvent(t *testing.T) {
	svc := newService(t)
	if _, err := svc.Edit(EditRequest{EventID: 404, Scope: ScopeSingle}); !domain.IsNotFound(err) {
		t.Errorf("Edit = %v, want a not-found error", err)
	}
}

func TestDeleteScopes(t *testing.T) {
	t.Run("single removes one instance", func(t *testing.T) {
		svc, series := seedSeries(t)
		target := series[1]

		res, err := svc.Delete(DeleteRequest{EventID: target.ID, Scope: ScopeSingle})
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if res.DeletedCount != 1 {
			t.Errorf("DeletedCount = %d, want 1", res.DeletedCount)
		}
		if got := svc.Store().RepeatGroup(target.RepeatID); len(got) != 3 {
			t.Errorf("series has %d instances, want 3", len(got))
		}
	})

	t.Run("future removes pivot and later", func(t *testing.T) {
		svc, series := seedSeries(t)
		target := series[2] // 2024-01-15

		res, err := svc.Delete(DeleteRequest{EventID: target.ID, Scope: ScopeFuture})
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if res.DeletedCount != 2 {
			t.Errorf("DeletedCount = %d, want 2", res.DeletedCount)
		}

		remaining := svc.Store().RepeatGroup(target.RepeatID)
		if len(remaining) != 2 {
			t.Fatalf("series has %d instances, want 2", len(remaining))
		}
		if remaining[0].Date != "2024-01-01" || remaining[1].Date != "2024-01-08" {
			t.Errorf("remaining dates = %q, %q", remaining[0].Date, remaining[1].Date)
		}
	})

	t.Run("all removes the whole series", func(t *testing.T) {
		svc, series := seedSeries(t)
		target := series[2]

		res, err := svc.Delete(DeleteRequest{EventID: target.ID, Scope: ScopeAll})
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if res.DeletedCount != 4 {
			t.Errorf("DeletedCount = %d, want 4", res.DeletedCount)
		}
		if got := svc.Store().RepeatGroup(target.RepeatID); len(got) != 0 {
			t.Errorf("series has %d instances, want 0", len(got))
		}
	})

	t.Run("absent id is a quiet zero result", func(t *testing.T) {
		svc := newService(t)
		res, err := svc.Delete(DeleteRequest{EventID: 404, Scope: ScopeAll})
		if err != nil {
			t.Fatalf("Delete = %v, want nil", err)
		}
		if res.DeletedCount != 0 {
			t.Errorf("DeletedCount = %d, want 0", res.DeletedCount)
		}
	})
}

func TestSetCompleted(t *testing.T) {
	svc := newService(t)
	created, err := svc.Create(CreateRequest{
		Event: domain.Event{Title: "Report", Date: "2024-05-01", Category: domain.CategoryWork},
	})
	if err != nil {
		t.Fatal(err)
	}

	done, err := svc.SetCompleted(created[0].ID, true)
	if err != nil {
		t.Fatalf("SetCompleted failed: %v", err)
	}
	if !done.Completed {
		t.Error("event not marked completed")
	}

	undone, err := svc.SetCompleted(created[0].ID, false)
	if err != nil {
		t.Fatalf("SetCompleted failed: %v", err)
	}
	if undone.Completed {
		t.Error("event not marked pending again")
	}
}
