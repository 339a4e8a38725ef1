package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// ArbService is what the trade endpoints read from.
type ArbService interface {
	LatestReporter
	ListRecent(ctx context.Context, limit int) ([]domain.TriangularTrade, error)
	ListReports(ctx context.Context, limit int) ([]domain.PassReport, error)
	ListArchive(ctx context.Context, exchange domain.Exchange, day time.Time) ([]domain.BlobInfo, error)
}

// TradeHandler serves detected trades and pass summaries.
type TradeHandler struct {
	arb    ArbService
	logger *slog.Logger
}

func NewTradeHandler(arb ArbService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{arb: arb, logger: logger}
}

type tradesResponse struct {
	PassID string                   `json:"pass_id,omitempty"`
	Trades []domain.TriangularTrade `json:"trades"`
}

// Latest returns the profitable trades of the last pass.
// GET /api/trades/latest
func (h *TradeHandler) Latest(w http.ResponseWriter, r *http.Request) {
	report, ok := h.arb.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no pass has completed yet")
		return
	}
	trades := report.Profitable
	if trades == nil {
		trades = []domain.TriangularTrade{}
	}
	writeJSON(w, http.StatusOK, tradesResponse{PassID: report.ID, Trades: trades})
}

// Recent returns stored profitable trades, newest first.
// GET /api/trades/recent?limit=20
func (h *TradeHandler) Recent(w http.ResponseWriter, r *http.Request) {
	trades, err := h.arb.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list recent trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	if trades == nil {
		trades = []domain.TriangularTrade{}
	}
	writeJSON(w, http.StatusOK, tradesResponse{Trades: trades})
}

// Reports returns recent pass summaries.
// GET /api/reports?limit=20
func (h *TradeHandler) Reports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.arb.ListReports(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list reports failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	if reports == nil {
		reports = []domain.PassReport{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// Archive lists the archived pass objects of one exchange and UTC day.
// GET /api/archive?exchange=binance&date=2024-03-09
func (h *TradeHandler) Archive(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	exchange := domain.Exchange(q.Get("exchange"))
	if exchange != domain.ExchangeBinance && exchange != domain.ExchangePoloniex {
		writeError(w, http.StatusBadRequest, "exchange must be binance or poloniex")
		return
	}
	day := time.Now().UTC()
	if v := q.Get("date"); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	objects, err := h.arb.ListArchive(r.Context(), exchange, day)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "report archive is not enabled")
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "handler: list archive failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list archive")
		return
	}
	if objects == nil {
		objects = []domain.BlobInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"exchange": exchange,
		"date":     day.Format(time.DateOnly),
		"objects":  objects,
	})
}
