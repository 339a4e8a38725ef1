package domain

import "context"

// TradeStore persists profitable triangular trades.
type TradeStore interface {
	InsertBatch(ctx context.Context, trades []TriangularTrade) error
	ListRecent(ctx context.Context, limit int) ([]TriangularTrade, error)
}

// SchemeStore persists enumerated cycle schemes so later passes can skip
// enumeration.
type SchemeStore interface {
	Save(ctx context.Context, schemes []Scheme) error
	Load(ctx context.Context) ([]Scheme, error)
}

// ReportStore keeps pass summaries. Listed reports carry no trades.
type ReportStore interface {
	InsertReport(ctx context.Context, report PassReport) error
	ListReports(ctx context.Context, limit int) ([]PassReport, error)
}
