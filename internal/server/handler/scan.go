package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// ScanHandler lets clients request an immediate detection pass.
type ScanHandler struct {
	trigger chan<- struct{}
	logger  *slog.Logger
}

// NewScanHandler creates a ScanHandler. A nil trigger disables the endpoint,
// which is the case outside watch mode.
func NewScanHandler(trigger chan<- struct{}, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{trigger: trigger, logger: logger}
}

// TriggerScan enqueues one pass. A pass already queued absorbs the request.
// POST /api/scan
func (h *ScanHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if h.trigger == nil {
		writeError(w, http.StatusConflict, "scan trigger is only available in watch mode")
		return
	}

	queued := true
	select {
	case h.trigger <- struct{}{}:
	default:
		queued = false
	}
	h.logger.InfoContext(r.Context(), "handler: scan requested", slog.Bool("queued", queued))

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"queued":       queued,
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}
