package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/triarb/internal/domain"
	"github.com/alanyoungcy/triarb/internal/notify"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func profitable(id string, start, final string) domain.TriangularTrade {
	s := decimal.RequireFromString(start)
	f := decimal.RequireFromString(final)
	return domain.TriangularTrade{
		ID:             id,
		Exchange:       domain.ExchangePoloniex,
		StartingAmount: s,
		FinalAmount:    f,
		Profit:         f.Sub(s),
		IsProfitable:   f.GreaterThan(s),
	}
}

type memTrades struct {
	inserted []domain.TriangularTrade
	err      error
}

func (m *memTrades) InsertBatch(_ context.Context, trades []domain.TriangularTrade) error {
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, trades...)
	return nil
}

func (m *memTrades) ListRecent(_ context.Context, limit int) ([]domain.TriangularTrade, error) {
	if limit > len(m.inserted) {
		limit = len(m.inserted)
	}
	return m.inserted[:limit], nil
}

type memReports struct{ reports []domain.PassReport }

func (m *memReports) InsertReport(_ context.Context, r domain.PassReport) error {
	m.reports = append(m.reports, r)
	return nil
}

func (m *memReports) ListReports(context.Context, int) ([]domain.PassReport, error) {
	return m.reports, nil
}

type memBus struct {
	mu         sync.Mutex
	published  map[string][][]byte
	streams    map[string][][]byte
	publishErr error
}

func newMemBus() *memBus {
	return &memBus{published: map[string][][]byte{}, streams: map[string][][]byte{}}
}

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }

func (b *memBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streams[stream] = append(b.streams[stream], payload)
	return nil
}

// StreamRead numbers entries from 1 so "0" reads from the start.
func (b *memBus) StreamRead(_ context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	after, err := strconv.Atoi(lastID)
	if err != nil {
		return nil, err
	}
	var out []domain.StreamMessage
	for i := after; i < len(b.streams[stream]) && len(out) < count; i++ {
		out = append(out, domain.StreamMessage{ID: strconv.Itoa(i + 1), Payload: b.streams[stream][i]})
	}
	return out, nil
}

type recordingSender struct{ titles []string }

func (s *recordingSender) Send(_ context.Context, title, _ string) error {
	s.titles = append(s.titles, title)
	return nil
}

func (s *recordingSender) Name() string { return "recording" }

type memArchiver struct{ ids []string }

func (a *memArchiver) ArchiveReport(_ context.Context, r domain.PassReport) (string, error) {
	a.ids = append(a.ids, r.ID)
	return "reports/" + r.ID + ".jsonl", nil
}

func (a *memArchiver) ListArchived(_ context.Context, ex domain.Exchange, day time.Time) ([]domain.BlobInfo, error) {
	out := make([]domain.BlobInfo, 0, len(a.ids))
	for _, id := range a.ids {
		out = append(out, domain.BlobInfo{Path: "reports/" + ex.String() + "/" + day.Format(time.DateOnly) + "/" + id + ".jsonl"})
	}
	return out, nil
}

func TestEvaluate(t *testing.T) {
	svc := NewArbService(ArbDeps{}, ArbConfig{MinProfitBps: decimal.NewFromInt(50)}, discardLogger())

	tests := []struct {
		name  string
		trade domain.TriangularTrade
		want  bool
	}{
		{"above gate", profitable("a", "100", "101"), true},
		{"exactly at gate", profitable("b", "100", "100.5"), true},
		{"below gate", profitable("c", "100", "100.1"), false},
		{"loss", profitable("d", "100", "99"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.Evaluate(tt.trade); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v (bps %s)", got, tt.want, tt.trade.ProfitBps())
			}
		})
	}
}

func TestRecordFansOut(t *testing.T) {
	trades := &memTrades{}
	reports := &memReports{}
	bus := newMemBus()
	arch := &memArchiver{}
	sender := &recordingSender{}

	svc := NewArbService(ArbDeps{
		Trades:   trades,
		Reports:  reports,
		Bus:      bus,
		Archiver: arch,
		Notifier: notify.NewNotifier([]notify.Sender{sender}, nil, discardLogger()),
	}, ArbConfig{MinProfitBps: decimal.NewFromInt(10), TopN: 1}, discardLogger())

	report := domain.PassReport{
		ID:       "pass-1",
		Exchange: domain.ExchangePoloniex,
		Profitable: []domain.TriangularTrade{
			profitable("t1", "100", "102"),
			profitable("t2", "100", "101"),
			profitable("t3", "100", "100.01"),
		},
	}
	if err := svc.Record(context.Background(), report); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if len(trades.inserted) != 3 {
		t.Errorf("inserted %d trades, want 3", len(trades.inserted))
	}
	if len(reports.reports) != 1 || reports.reports[0].ID != "pass-1" {
		t.Errorf("reports = %+v", reports.reports)
	}
	if got := len(bus.published[domain.ChannelTrades]); got != 3 {
		t.Errorf("published %d trades, want 3", got)
	}
	if got := len(bus.streams[domain.StreamReports]); got != 1 {
		t.Fatalf("stream entries = %d, want 1", got)
	}
	var summary domain.PassReport
	if err := json.Unmarshal(bus.streams[domain.StreamReports][0], &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.ID != "pass-1" || len(summary.Profitable) != 0 {
		t.Errorf("summary = %+v, want id pass-1 without trades", summary)
	}
	if len(arch.ids) != 1 {
		t.Errorf("archived %d reports, want 1", len(arch.ids))
	}
	if len(sender.titles) != 1 {
		t.Errorf("notified %d trades, want 1 (top n)", len(sender.titles))
	}

	latest, ok := svc.Latest()
	if !ok || latest.ID != "pass-1" {
		t.Errorf("Latest() = %+v, %v", latest, ok)
	}
}

func TestRecordReturnsStoreError(t *testing.T) {
	boom := errors.New("db down")
	bus := newMemBus()
	svc := NewArbService(ArbDeps{Trades: &memTrades{err: boom}, Bus: bus}, ArbConfig{}, discardLogger())

	report := domain.PassReport{ID: "p", Profitable: []domain.TriangularTrade{profitable("t", "1", "2")}}
	err := svc.Record(context.Background(), report)
	if !errors.Is(err, boom) {
		t.Fatalf("Record error = %v, want %v", err, boom)
	}
	if len(bus.published[domain.ChannelTrades]) != 1 {
		t.Error("bus publish should still run after a store failure")
	}
}

func TestRecordAppendsSummaryWhenPublishFails(t *testing.T) {
	bus := newMemBus()
	bus.publishErr = errors.New("redis down")
	svc := NewArbService(ArbDeps{Bus: bus}, ArbConfig{}, discardLogger())

	report := domain.PassReport{ID: "p", Profitable: []domain.TriangularTrade{
		profitable("a", "1", "3"), profitable("b", "1", "2"),
	}}
	if err := svc.Record(context.Background(), report); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if got := len(bus.streams[domain.StreamReports]); got != 1 {
		t.Errorf("stream entries = %d, want 1 despite publish failure", got)
	}
}

func TestListReportsFromStream(t *testing.T) {
	bus := newMemBus()
	for i := 1; i <= reportStreamPage+100; i++ {
		payload, err := json.Marshal(domain.PassReport{ID: "p" + strconv.Itoa(i)})
		if err != nil {
			t.Fatal(err)
		}
		bus.streams[domain.StreamReports] = append(bus.streams[domain.StreamReports], payload)
	}
	bus.streams[domain.StreamReports] = append(bus.streams[domain.StreamReports], []byte("not json"))
	svc := NewArbService(ArbDeps{Bus: bus}, ArbConfig{}, discardLogger())

	got, err := svc.ListReports(context.Background(), 3)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	want := []string{"p600", "p599", "p598"}
	if len(got) != len(want) {
		t.Fatalf("got %d reports, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("reports[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestListArchive(t *testing.T) {
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	svc := NewArbService(ArbDeps{}, ArbConfig{}, discardLogger())
	if _, err := svc.ListArchive(context.Background(), domain.ExchangeBinance, day); !errors.Is(err, ErrArchiveDisabled) {
		t.Fatalf("err = %v, want ErrArchiveDisabled", err)
	}

	arch := &memArchiver{ids: []string{"r-1"}}
	svc = NewArbService(ArbDeps{Archiver: arch}, ArbConfig{}, discardLogger())
	got, err := svc.ListArchive(context.Background(), domain.ExchangeBinance, day)
	if err != nil {
		t.Fatalf("ListArchive: %v", err)
	}
	if len(got) != 1 || got[0].Path != "reports/binance/2024-03-09/r-1.jsonl" {
		t.Errorf("archive = %+v", got)
	}
}

func TestListRecentWithoutStore(t *testing.T) {
	svc := NewArbService(ArbDeps{}, ArbConfig{}, discardLogger())
	ctx := context.Background()

	got, err := svc.ListRecent(ctx, 10)
	if err != nil || got != nil {
		t.Fatalf("ListRecent before any pass = %v, %v", got, err)
	}

	report := domain.PassReport{ID: "p", Profitable: []domain.TriangularTrade{
		profitable("a", "1", "3"), profitable("b", "1", "2"),
	}}
	if err := svc.Record(ctx, report); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err = svc.ListRecent(ctx, 1)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("ListRecent(1) = %+v", got)
	}

	reports, err := svc.ListReports(ctx, 5)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(reports) != 1 || len(reports[0].Profitable) != 0 {
		t.Errorf("ListReports = %+v", reports)
	}
}

type countingProvider struct {
	calls   int
	tickers []domain.Ticker
	err     error
}

func (p *countingProvider) Exchange() domain.Exchange { return domain.ExchangeBinance }

func (p *countingProvider) FetchTickers(context.Context) ([]domain.Ticker, error) {
	p.calls++
	return p.tickers, p.err
}

type memTickerCache struct {
	data    map[domain.Exchange][]domain.Ticker
	failGet bool
}

func (c *memTickerCache) SetTickers(_ context.Context, ex domain.Exchange, tickers []domain.Ticker, _ time.Duration) error {
	c.data[ex] = tickers
	return nil
}

func (c *memTickerCache) GetTickers(_ context.Context, ex domain.Exchange) ([]domain.Ticker, error) {
	if c.failGet {
		return nil, errors.New("redis unavailable")
	}
	tickers, ok := c.data[ex]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tickers, nil
}

func TestTickerServiceCaches(t *testing.T) {
	p := &countingProvider{tickers: []domain.Ticker{{Symbol: "BTCUSDT"}}}
	cache := &memTickerCache{data: map[domain.Exchange][]domain.Ticker{}}
	svc := NewTickerService(p, cache, time.Minute, discardLogger())

	for i := 0; i < 3; i++ {
		got, err := svc.FetchTickers(context.Background())
		if err != nil {
			t.Fatalf("FetchTickers: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("got %d tickers", len(got))
		}
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1", p.calls)
	}
}

func TestTickerServiceCacheFailureFallsThrough(t *testing.T) {
	p := &countingProvider{tickers: []domain.Ticker{{Symbol: "BTCUSDT"}}}
	cache := &memTickerCache{data: map[domain.Exchange][]domain.Ticker{}, failGet: true}
	svc := NewTickerService(p, cache, time.Minute, discardLogger())

	if _, err := svc.FetchTickers(context.Background()); err != nil {
		t.Fatalf("FetchTickers: %v", err)
	}
	if _, err := svc.FetchTickers(context.Background()); err != nil {
		t.Fatalf("FetchTickers: %v", err)
	}
	if p.calls != 2 {
		t.Errorf("provider called %d times, want 2", p.calls)
	}
}

func TestTickerServiceProviderError(t *testing.T) {
	boom := errors.New("exchange down")
	p := &countingProvider{err: boom}
	svc := NewTickerService(p, nil, time.Minute, discardLogger())

	if _, err := svc.FetchTickers(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
