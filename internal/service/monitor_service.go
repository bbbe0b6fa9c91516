package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bcnelson/roster-monitor/internal/diff"
	"github.com/bcnelson/roster-monitor/internal/domain"
	"github.com/bcnelson/roster-monitor/internal/fetcher"
	"github.com/bcnelson/roster-monitor/internal/report"
	"github.com/bcnelson/roster-monitor/internal/storage"
)

// MonitorService runs the fetch, compare and record cycle over the configured groups.
type MonitorService struct {
	store    storage.Storage
	client   fetcher.RosterClient
	recorder *Recorder
	groups   []domain.Group
	logger   *slog.Logger
	now      func() time.Time

	// mu serializes runs so groups are never processed concurrently.
	mu sync.Mutex
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(store storage.Storage, client fetcher.RosterClient, groups []domain.Group, writeReports bool) *MonitorService {
	return &MonitorService{
		store:    store,
		client:   client,
		recorder: NewRecorder(store, writeReports),
		groups:   append([]domain.Group(nil), groups...),
		logger:   slog.Default(),
		now:      time.Now,
	}
}

// SetClock replaces the time source used to stamp history entries.
func (s *MonitorService) SetClock(now func() time.Time) {
	s.now = now
}

// SetLogger replaces the logger.
func (s *MonitorService) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Groups returns the configured groups.
func (s *MonitorService) Groups() []domain.Group {
	return append([]domain.Group(nil), s.groups...)
}

// Group returns the configured group with the given id.
func (s *MonitorService) Group(id string) (domain.Group, error) {
	for _, g := range s.groups {
		if g.ID == id {
			return g, nil
		}
	}
	return domain.Group{}, domain.ErrNotFound
}

// Run processes every configured group, one after the other.
// A failing group is logged and recorded in the report; the remaining
// groups are still processed. Run waits for any run already in progress.
func (s *MonitorService) Run(ctx context.Context) *domain.RunReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx)
}

// TriggerRun is Run for callers that must not wait: it returns
// domain.ErrRunInProgress if a run is already underway.
func (s *MonitorService) TriggerRun(ctx context.Context) (*domain.RunReport, error) {
	if !s.mu.TryLock() {
		return nil, domain.ErrRunInProgress
	}
	defer s.mu.Unlock()
	return s.run(ctx), nil
}

func (s *MonitorService) run(ctx context.Context) *domain.RunReport {
	rep := &domain.RunReport{
		StartedAt: s.now(),
		Results:   make([]domain.GroupResult, 0, len(s.groups)),
	}

	for _, group := range s.groups {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("run interrupted", "group_id", group.ID, "error", err)
			break
		}

		result := domain.GroupResult{GroupID: group.ID, GroupName: group.Name}
		entry, err := s.ProcessGroup(ctx, group)
		if err != nil {
			s.logger.Error("group processing failed", "group", group.Name, "group_id", group.ID, "error", err)
			result.Error = err.Error()
		} else {
			result.EntryID = entry.ID
			result.Added = len(entry.Added)
			result.Removed = len(entry.Removed)
			result.AdminChanges = len(entry.AdminChanges)
		}
		rep.Results = append(rep.Results, result)
	}

	rep.FinishedAt = s.now()
	s.logger.Info("run finished",
		"groups", len(rep.Results),
		"failed", rep.Failed(),
		"duration", rep.FinishedAt.Sub(rep.StartedAt))
	return rep
}

// ProcessGroup fetches the roster of one group, compares it with the stored
// baseline and records the result. On error nothing has been written unless
// the failure happened while writing.
func (s *MonitorService) ProcessGroup(ctx context.Context, group domain.Group) (*domain.HistoryEntry, error) {
	s.logger.Info("processing group", "group", group.Name, "group_id", group.ID)

	roster, err := s.client.FetchRoster(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("fetching roster: %w", err)
	}
	s.logger.Debug("roster fetched", "group_id", group.ID, "members", len(roster))

	baseline, err := s.store.LoadBaseline(ctx, group.ID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		s.logger.Warn("no usable baseline, treating as empty", "group_id", group.ID, "error", err)
		baseline = domain.Roster{}
	}
	if len(baseline) == 0 {
		s.logger.Info("no previous roster for group", "group", group.Name, "group_id", group.ID)
	}

	delta := diff.Compare(roster, baseline)

	entry, err := s.recorder.Record(ctx, group, roster, delta, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("group recorded",
		"group", group.Name,
		"group_id", group.ID,
		"added", len(delta.Added),
		"removed", len(delta.Removed),
		"admin_changes", len(delta.AdminChanges))
	s.logger.Debug("group report", "group_id", group.ID, "report", report.Render(group, entry))

	return entry, nil
}

// StartSchedule runs immediately and then every interval until ctx is done.
func (s *MonitorService) StartSchedule(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Run(ctx)
		}
	}
}
