package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"stovelink/internal/models"
)

// fakeEventRepo records the filter it was called with.
type fakeEventRepo struct {
	from, to     time.Time
	typ, stoveID string
	result       []models.StoveEvent
	err          error
}

func (f *fakeEventRepo) Append(context.Context, models.StoveEvent) error { return nil }

func (f *fakeEventRepo) List(_ context.Context, from, to time.Time, typ, stoveID string) ([]models.StoveEvent, error) {
	f.from, f.to, f.typ, f.stoveID = from, to, typ, stoveID
	return f.result, f.err
}

func TestEventLogList_NormalizesFilter(t *testing.T) {
	t.Parallel()

	repo := &fakeEventRepo{result: []models.StoveEvent{{EventID: "e1"}}}
	svc := NewEventLogService(repo)

	loc := time.FixedZone("CET", 3600)
	from := time.Date(2026, 2, 1, 10, 0, 0, 0, loc)

	events, err := svc.List(context.Background(), LogFilter{
		From:    from,
		Type:    " status_change ",
		StoveID: " 12345 ",
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d", len(events))
	}

	if repo.from.Location() != time.UTC {
		t.Errorf("from not normalized to UTC: %v", repo.from)
	}
	if repo.typ != "STATUS_CHANGE" {
		t.Errorf("type = %q", repo.typ)
	}
	if repo.stoveID != "12345" {
		t.Errorf("stove = %q", repo.stoveID)
	}
	if !repo.to.IsZero() {
		t.Errorf("zero To must stay zero, got %v", repo.to)
	}
}

func TestEventLogList_RejectsInvertedRange(t *testing.T) {
	t.Parallel()

	svc := NewEventLogService(&fakeEventRepo{})

	from := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)
	_, err := svc.List(context.Background(), LogFilter{From: from, To: to})
	if !errors.Is(err, errInvalidTimeRange) {
		t.Errorf("err = %v, want errInvalidTimeRange", err)
	}
}
