package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/polycopy/internal/executor"
)

// LoopStatus exposes the copy loop's state.
type LoopStatus interface {
	Status() executor.Status
}

// StatusHandler serves the copy engine status for the dashboard.
type StatusHandler struct {
	Mode      string
	Target    string
	Epoch     string
	DryRun    bool
	StartedAt time.Time
	loop      LoopStatus
}

// NewStatusHandler creates a StatusHandler. loop may be nil in modes that
// do not run the executor.
func NewStatusHandler(mode, target, epoch string, dryRun bool, loop LoopStatus) *StatusHandler {
	return &StatusHandler{
		Mode:      mode,
		Target:    target,
		Epoch:     epoch,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
		loop:      loop,
	}
}

// GetStatus responds with the run configuration and, when a loop is
// attached, its latest status.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"mode":           h.Mode,
		"target":         h.Target,
		"epoch":          h.Epoch,
		"dry_run":        h.DryRun,
		"uptime_seconds": int64(time.Since(h.StartedAt).Seconds()),
	}
	if h.loop != nil {
		resp["loop"] = h.loop.Status()
	}
	writeJSON(w, http.StatusOK, resp)
}
