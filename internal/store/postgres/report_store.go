package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// ReportStore implements domain.ReportStore on the pass_reports table.
type ReportStore struct {
	pool *pgxpool.Pool
}

func NewReportStore(pool *pgxpool.Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

func (s *ReportStore) InsertReport(ctx context.Context, r domain.PassReport) error {
	const query = `
		INSERT INTO pass_reports (
			id, exchange, started_at, duration_ms,
			tickers, schemes, evaluated, unpriced, profitable
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		r.ID, r.Exchange.String(), r.StartedAt, r.Duration.Milliseconds(),
		r.Tickers, r.Schemes, r.Evaluated, r.Unpriced, len(r.Profitable),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert report %s: %w", r.ID, err)
	}
	return nil
}

// ListReports returns the newest summaries first. Profitable is left nil;
// the stored count is not returned.
func (s *ReportStore) ListReports(ctx context.Context, limit int) ([]domain.PassReport, error) {
	const query = `
		SELECT id::text, exchange, started_at, duration_ms, tickers, schemes, evaluated, unpriced
		FROM pass_reports
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list reports: %w", err)
	}
	defer rows.Close()

	var out []domain.PassReport
	for rows.Next() {
		var (
			r          domain.PassReport
			exchange   string
			durationMS int64
		)
		if err := rows.Scan(&r.ID, &exchange, &r.StartedAt, &durationMS,
			&r.Tickers, &r.Schemes, &r.Evaluated, &r.Unpriced); err != nil {
			return nil, fmt.Errorf("postgres: scan report: %w", err)
		}
		r.Exchange = domain.Exchange(exchange)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list reports: %w", err)
	}
	return out, nil
}

var _ domain.ReportStore = (*ReportStore)(nil)
