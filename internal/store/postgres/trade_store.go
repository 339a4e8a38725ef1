package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// TradeStore implements domain.TradeStore on the triangular_trades table.
type TradeStore struct {
	pool *pgxpool.Pool
}

func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const insertTradeSQL = `
	INSERT INTO triangular_trades (
		id, report_id, exchange, scheme_key, scheme, records,
		starting_amount, final_amount, profit, profit_bps, detected_at
	) VALUES (
		$1, NULLIF($2, '')::uuid, $3, $4, $5, $6,
		$7::numeric, $8::numeric, $9::numeric, $10::numeric, $11
	)
	ON CONFLICT (id) DO NOTHING`

// InsertBatch writes trades in one round trip. Re-inserting a known trade ID
// is a no-op.
func (s *TradeStore) InsertBatch(ctx context.Context, trades []domain.TriangularTrade) error {
	if len(trades) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range trades {
		scheme, err := json.Marshal(t.Scheme)
		if err != nil {
			return fmt.Errorf("postgres: marshal scheme %s: %w", t.ID, err)
		}
		records, err := json.Marshal(t.Records)
		if err != nil {
			return fmt.Errorf("postgres: marshal records %s: %w", t.ID, err)
		}
		batch.Queue(insertTradeSQL,
			t.ID, t.ReportID, t.Exchange.String(), t.Scheme.Key(), scheme, records,
			t.StartingAmount.String(), t.FinalAmount.String(), t.Profit.String(), t.ProfitBps().String(),
			t.DetectedAt,
		)
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: insert %d trades: %w", len(trades), err)
	}
	return nil
}

// ListRecent returns the newest trades first.
func (s *TradeStore) ListRecent(ctx context.Context, limit int) ([]domain.TriangularTrade, error) {
	const query = `
		SELECT id::text, COALESCE(report_id::text, ''), exchange, scheme, records,
			starting_amount::text, final_amount::text, profit::text, detected_at
		FROM triangular_trades
		ORDER BY detected_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent trades: %w", err)
	}
	defer rows.Close()

	var out []domain.TriangularTrade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent trades: %w", err)
	}
	return out, nil
}

func scanTrade(row pgx.Row) (domain.TriangularTrade, error) {
	var (
		t                    domain.TriangularTrade
		exchange             string
		scheme, records      []byte
		start, final, profit string
		detectedAt           time.Time
	)
	if err := row.Scan(&t.ID, &t.ReportID, &exchange, &scheme, &records, &start, &final, &profit, &detectedAt); err != nil {
		return t, fmt.Errorf("postgres: scan trade: %w", err)
	}
	if err := json.Unmarshal(scheme, &t.Scheme); err != nil {
		return t, fmt.Errorf("postgres: decode scheme %s: %w", t.ID, err)
	}
	if err := json.Unmarshal(records, &t.Records); err != nil {
		return t, fmt.Errorf("postgres: decode records %s: %w", t.ID, err)
	}

	var err error
	if t.StartingAmount, err = decimal.NewFromString(start); err != nil {
		return t, fmt.Errorf("postgres: parse starting_amount %s: %w", t.ID, err)
	}
	if t.FinalAmount, err = decimal.NewFromString(final); err != nil {
		return t, fmt.Errorf("postgres: parse final_amount %s: %w", t.ID, err)
	}
	if t.Profit, err = decimal.NewFromString(profit); err != nil {
		return t, fmt.Errorf("postgres: parse profit %s: %w", t.ID, err)
	}
	t.Exchange = domain.Exchange(exchange)
	t.IsProfitable = t.FinalAmount.GreaterThan(t.StartingAmount)
	t.DetectedAt = detectedAt
	return t, nil
}

var _ domain.TradeStore = (*TradeStore)(nil)
