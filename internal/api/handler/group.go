package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bcnelson/roster-monitor/internal/domain"
	"github.com/bcnelson/roster-monitor/internal/report"
	"github.com/bcnelson/roster-monitor/internal/service"
	"github.com/bcnelson/roster-monitor/internal/storage"
)

// GroupHandler serves monitored groups, their baselines and their history.
type GroupHandler struct {
	store   storage.Storage
	monitor *service.MonitorService
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(store storage.Storage, monitor *service.MonitorService) *GroupHandler {
	return &GroupHandler{store: store, monitor: monitor}
}

// GroupSummary describes a group and the state of its stores.
type GroupSummary struct {
	domain.Group
	Members      int        `json:"members"`
	Admins       int        `json:"admins"`
	Entries      int        `json:"entries"`
	LastRecorded *time.Time `json:"lastRecorded,omitempty"`
}

// HistoryPage is a window over a group's history.
type HistoryPage struct {
	GroupID string                 `json:"groupId"`
	Total   int                    `json:"total"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
	Entries []*domain.HistoryEntry `json:"entries"`
}

// List returns the configured groups.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.monitor.Groups())
}

// Get returns one group with counts from its baseline and history.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	group, err := h.monitor.Group(chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}

	baseline, err := h.store.LoadBaseline(r.Context(), group.ID)
	if err != nil {
		handleError(w, err)
		return
	}
	history, err := h.store.LoadHistory(r.Context(), group.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	summary := GroupSummary{Group: group, Members: len(baseline), Entries: len(history)}
	for _, m := range baseline {
		if m.IsAdmin {
			summary.Admins++
		}
	}
	if len(history) > 0 {
		ts := history[len(history)-1].Timestamp
		summary.LastRecorded = &ts
	}

	respondJSON(w, http.StatusOK, summary)
}

// Baseline returns the stored roster of a group.
func (h *GroupHandler) Baseline(w http.ResponseWriter, r *http.Request) {
	group, err := h.monitor.Group(chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}

	baseline, err := h.store.LoadBaseline(r.Context(), group.ID)
	if err != nil {
		handleError(w, err)
		return
	}
	if baseline == nil {
		baseline = domain.Roster{}
	}

	respondJSON(w, http.StatusOK, baseline)
}

// History returns a page of a group's history, oldest first.
// With format=text the page is rendered as a plain-text report.
func (h *GroupHandler) History(w http.ResponseWriter, r *http.Request) {
	group, err := h.monitor.Group(chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}

	entries, err := h.store.LoadHistory(r.Context(), group.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	limit, offset := pagination(r, 50)
	total := len(entries)
	start := min(offset, total)
	end := min(start+limit, total)
	page := entries[start:end]

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(report.RenderAll(group, page)))
		return
	}

	respondJSON(w, http.StatusOK, &HistoryPage{
		GroupID: group.ID,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		Entries: page,
	})
}
