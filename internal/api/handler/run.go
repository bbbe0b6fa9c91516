package handler

import (
	"context"
	"net/http"

	"github.com/bcnelson/roster-monitor/internal/service"
)

// RunHandler handles run endpoints.
type RunHandler struct {
	monitor *service.MonitorService
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(monitor *service.MonitorService) *RunHandler {
	return &RunHandler{monitor: monitor}
}

// Trigger runs every group now and returns the run report.
// The run is detached from the request so a client disconnect does not
// skip the remaining groups.
func (h *RunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	rep, err := h.monitor.TriggerRun(context.WithoutCancel(r.Context()))
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rep)
}
