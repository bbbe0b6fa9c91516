package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bcnelson/roster-monitor/internal/domain"
	"github.com/bcnelson/roster-monitor/internal/report"
	"github.com/bcnelson/roster-monitor/internal/storage"
)

// Recorder appends history entries and replaces baselines.
type Recorder struct {
	store        storage.Storage
	writeReports bool
}

// NewRecorder creates a new Recorder.
// With writeReports set, stores that implement storage.ReportWriter also
// receive a text report of every entry.
func NewRecorder(store storage.Storage, writeReports bool) *Recorder {
	return &Recorder{store: store, writeReports: writeReports}
}

// Record appends the delta as a new history entry of the group and then
// overwrites the group's baseline with roster, even when the delta is empty.
//
// The two writes are not atomic: if the baseline write fails the entry stays
// in the history. Cancelling ctx does not interrupt the writes once they
// have started, so a cancelled run never leaves an entry without its baseline.
func (r *Recorder) Record(ctx context.Context, group domain.Group, roster domain.Roster, delta domain.Delta, ts time.Time) (*domain.HistoryEntry, error) {
	ctx = context.WithoutCancel(ctx)

	entry := &domain.HistoryEntry{
		ID:           uuid.New().String(),
		GroupID:      group.ID,
		Timestamp:    ts,
		Added:        delta.Added,
		Removed:      delta.Removed,
		AdminChanges: delta.AdminChanges,
	}

	if err := r.store.AppendHistory(ctx, group.ID, entry); err != nil {
		return nil, fmt.Errorf("appending history: %w", err)
	}

	if r.writeReports {
		if rw, ok := r.store.(storage.ReportWriter); ok {
			if err := rw.AppendReport(ctx, group.ID, report.Render(group, entry)); err != nil {
				return nil, fmt.Errorf("appending report: %w", err)
			}
		}
	}

	if err := r.store.SaveBaseline(ctx, group.ID, roster); err != nil {
		return nil, fmt.Errorf("saving baseline: %w", err)
	}

	return entry, nil
}
