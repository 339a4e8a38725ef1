package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/triarb/internal/domain"
)

type captureWriter struct {
	path        string
	contentType string
	data        []byte
	err         error
}

func (c *captureWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if c.err != nil {
		return c.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	c.path, c.contentType, c.data = path, contentType, b
	return nil
}

func (c *captureWriter) PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error {
	return c.Put(ctx, path, data, "")
}

type memReader struct {
	objects  map[string]bool
	prefixes []string
}

func (m *memReader) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	return nil, domain.ErrNotFound
}

func (m *memReader) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	m.prefixes = append(m.prefixes, prefix)
	var out []domain.BlobInfo
	for p := range m.objects {
		if strings.HasPrefix(p, prefix) {
			out = append(out, domain.BlobInfo{Path: p})
		}
	}
	return out, nil
}

func (m *memReader) Exists(ctx context.Context, path string) (bool, error) {
	return m.objects[path], nil
}

func TestArchiveReport(t *testing.T) {
	w := &captureWriter{}
	a := NewReportArchiver(w, nil, "reports")
	report := domain.PassReport{
		ID:        "r-1",
		Exchange:  domain.ExchangeBinance,
		StartedAt: time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Schemes:   6,
		Evaluated: 6,
		Profitable: []domain.TriangularTrade{
			{ID: "t-1", FinalAmount: decimal.RequireFromString("18.1"), IsProfitable: true},
			{ID: "t-2", FinalAmount: decimal.RequireFromString("17.9"), IsProfitable: true},
		},
	}

	key, err := a.ArchiveReport(context.Background(), report)
	if err != nil {
		t.Fatalf("ArchiveReport: %v", err)
	}
	if key != "reports/binance/2024-03-09/r-1.jsonl" || w.path != key {
		t.Errorf("key = %q, written to %q", key, w.path)
	}
	if w.contentType != "application/x-ndjson" {
		t.Errorf("content type = %q", w.contentType)
	}

	var lines []archiveLine
	sc := bufio.NewScanner(bytes.NewReader(w.data))
	for sc.Scan() {
		var l archiveLine
		if err := json.Unmarshal(sc.Bytes(), &l); err != nil {
			t.Fatalf("line %d: %v", len(lines), err)
		}
		lines = append(lines, l)
	}
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	if lines[0].Kind != "pass" || lines[0].Summary == nil || lines[0].Summary.Profitable != 2 || lines[0].Summary.DurationMS != 1500 {
		t.Errorf("summary line = %+v", lines[0])
	}
	if lines[2].Kind != "trade" || lines[2].Trade.ID != "t-2" || lines[2].ReportID != "r-1" {
		t.Errorf("trade line = %+v", lines[2])
	}
}

func TestArchiveReportUploadError(t *testing.T) {
	boom := errors.New("boom")
	a := NewReportArchiver(&captureWriter{err: boom}, nil, "")
	if _, err := a.ArchiveReport(context.Background(), domain.PassReport{ID: "x"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestArchiveReportSkipsArchived(t *testing.T) {
	w := &captureWriter{}
	r := &memReader{objects: map[string]bool{"reports/poloniex/2024-03-09/r-1.jsonl": true}}
	a := NewReportArchiver(w, r, "reports")
	report := domain.PassReport{
		ID:        "r-1",
		Exchange:  domain.ExchangePoloniex,
		StartedAt: time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC),
	}

	key, err := a.ArchiveReport(context.Background(), report)
	if err != nil {
		t.Fatalf("ArchiveReport: %v", err)
	}
	if key != "reports/poloniex/2024-03-09/r-1.jsonl" {
		t.Errorf("key = %q", key)
	}
	if w.path != "" {
		t.Errorf("archived report uploaded again to %q", w.path)
	}

	report.ID = "r-2"
	if _, err := a.ArchiveReport(context.Background(), report); err != nil {
		t.Fatalf("ArchiveReport: %v", err)
	}
	if w.path != "reports/poloniex/2024-03-09/r-2.jsonl" {
		t.Errorf("new report written to %q", w.path)
	}
}

func TestListArchived(t *testing.T) {
	r := &memReader{objects: map[string]bool{
		"reports/binance/2024-03-09/a.jsonl":  true,
		"reports/binance/2024-03-10/b.jsonl":  true,
		"reports/poloniex/2024-03-09/c.jsonl": true,
	}}
	a := NewReportArchiver(&captureWriter{}, r, "reports")

	// 23:30 at UTC-5 is already the 10th in UTC.
	day := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	got, err := a.ListArchived(context.Background(), domain.ExchangeBinance, day)
	if err != nil {
		t.Fatalf("ListArchived: %v", err)
	}
	if len(got) != 1 || got[0].Path != "reports/binance/2024-03-10/b.jsonl" {
		t.Errorf("listed = %+v", got)
	}
	if r.prefixes[0] != "reports/binance/2024-03-10/" {
		t.Errorf("prefix = %q", r.prefixes[0])
	}

	if _, err := NewReportArchiver(&captureWriter{}, nil, "reports").ListArchived(context.Background(), domain.ExchangeBinance, day); err == nil {
		t.Error("ListArchived without a reader succeeded")
	}
}

func TestNormaliseEndpoint(t *testing.T) {
	tests := []struct {
		in     string
		useSSL bool
		want   string
	}{
		{"minio:9000", false, "http://minio:9000"},
		{"e2.example.com", true, "https://e2.example.com"},
		{"https://s3.example.com", false, "https://s3.example.com"},
	}
	for _, tt := range tests {
		if got := normaliseEndpoint(tt.in, tt.useSSL); got != tt.want {
			t.Errorf("normaliseEndpoint(%q, %v) = %q, want %q", tt.in, tt.useSSL, got, tt.want)
		}
	}
}
