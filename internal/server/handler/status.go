package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// LatestReporter returns the most recent pass report, if any.
type LatestReporter interface {
	Latest() (domain.PassReport, bool)
}

// StatusHandler serves the run mode and the outcome of the last pass.
type StatusHandler struct {
	mode      string
	exchange  domain.Exchange
	startedAt time.Time
	reports   LatestReporter
}

func NewStatusHandler(mode string, exchange domain.Exchange, reports LatestReporter) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		exchange:  exchange,
		startedAt: time.Now().UTC(),
		reports:   reports,
	}
}

// GetStatus responds with mode, exchange and last pass details.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"mode":           h.mode,
		"exchange":       h.exchange,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}
	if report, ok := h.reports.Latest(); ok {
		resp["last_pass"] = map[string]any{
			"id":         report.ID,
			"started_at": report.StartedAt.Format(time.RFC3339),
			"duration":   report.Duration.String(),
			"schemes":    report.Schemes,
			"unpriced":   report.Unpriced,
			"profitable": len(report.Profitable),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
