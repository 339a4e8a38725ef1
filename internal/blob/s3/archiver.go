package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// ReportArchiver implements domain.ReportArchiver. Each pass becomes one
// JSONL object: a summary line followed by one line per profitable trade.
//
//	<prefix>/<exchange>/<YYYY-MM-DD>/<report-id>.jsonl
type ReportArchiver struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	prefix string
}

// NewReportArchiver archives through w. r may be nil, in which case reports
// are always uploaded and ListArchived fails.
func NewReportArchiver(w domain.BlobWriter, r domain.BlobReader, prefix string) *ReportArchiver {
	return &ReportArchiver{writer: w, reader: r, prefix: prefix}
}

// archiveLine is one JSONL record. Kind tells summary and trade lines apart.
type archiveLine struct {
	Kind     string                  `json:"kind"`
	ReportID string                  `json:"report_id"`
	Summary  *passSummary            `json:"summary,omitempty"`
	Trade    *domain.TriangularTrade `json:"trade,omitempty"`
}

type passSummary struct {
	Exchange   domain.Exchange `json:"exchange"`
	StartedAt  time.Time       `json:"started_at"`
	DurationMS int64           `json:"duration_ms"`
	Tickers    int             `json:"tickers"`
	Schemes    int             `json:"schemes"`
	Evaluated  int             `json:"evaluated"`
	Unpriced   int             `json:"unpriced"`
	Profitable int             `json:"profitable"`
}

// ArchiveReport uploads report and returns the object path. A report that
// is already archived is not uploaded again.
func (a *ReportArchiver) ArchiveReport(ctx context.Context, report domain.PassReport) (string, error) {
	key := reportPath(a.prefix, report)
	if a.reader != nil {
		if ok, err := a.reader.Exists(ctx, key); err == nil && ok {
			return key, nil
		}
	}

	lines := make([]archiveLine, 0, len(report.Profitable)+1)
	lines = append(lines, archiveLine{
		Kind:     "pass",
		ReportID: report.ID,
		Summary: &passSummary{
			Exchange:   report.Exchange,
			StartedAt:  report.StartedAt,
			DurationMS: report.Duration.Milliseconds(),
			Tickers:    report.Tickers,
			Schemes:    report.Schemes,
			Evaluated:  report.Evaluated,
			Unpriced:   report.Unpriced,
			Profitable: len(report.Profitable),
		},
	})
	for i := range report.Profitable {
		lines = append(lines, archiveLine{Kind: "trade", ReportID: report.ID, Trade: &report.Profitable[i]})
	}

	buf, err := marshalJSONL(lines)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive report %s: %w", report.ID, err)
	}

	if err := a.writer.Put(ctx, key, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return "", fmt.Errorf("s3blob: archive report %s: %w", report.ID, err)
	}
	return key, nil
}

// ListArchived lists the reports archived for exchange on day's UTC date.
func (a *ReportArchiver) ListArchived(ctx context.Context, exchange domain.Exchange, day time.Time) ([]domain.BlobInfo, error) {
	if a.reader == nil {
		return nil, errors.New("s3blob: list archived: no reader configured")
	}
	objects, err := a.reader.List(ctx, dayPrefix(a.prefix, exchange, day))
	if err != nil {
		return nil, fmt.Errorf("s3blob: list archived: %w", err)
	}
	return objects, nil
}

func dayPrefix(prefix string, exchange domain.Exchange, day time.Time) string {
	return path.Join(prefix, exchange.String(), day.UTC().Format(time.DateOnly)) + "/"
}

func reportPath(prefix string, r domain.PassReport) string {
	return dayPrefix(prefix, r.Exchange, r.StartedAt) + r.ID + ".jsonl"
}

// marshalJSONL writes one compact JSON document per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.ReportArchiver = (*ReportArchiver)(nil)
