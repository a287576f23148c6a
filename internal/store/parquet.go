package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"reportbot/internal/domain"
)

// HistoryRecord is the Parquet schema of an exported quality history entry.
type HistoryRecord struct {
	Month       string  `parquet:"month"`
	MetricValue float64 `parquet:"metric_value"`
	RecordedAt  int64   `parquet:"recorded_at,timestamp(millisecond)"` // Unix ms
}

// ExportHistoryParquet writes the store's full audit history to path. An
// existing archive at path is merged with the current history, deduplicated
// by (month, recorded_at), so records removed by Clear survive in earlier
// exports. An archive that cannot be read is left untouched and reported.
// It returns the number of records in the written file.
func ExportHistoryParquet(ctx context.Context, s QualityStore, path string) (int, error) {
	history, err := s.History(ctx, "")
	if err != nil {
		return 0, err
	}

	incoming := make([]HistoryRecord, 0, len(history))
	for _, r := range history {
		incoming = append(incoming, HistoryRecord{
			Month:       r.MonthKey,
			MetricValue: r.MetricValue,
			RecordedAt:  r.RecordedAt.UnixMilli(),
		})
	}

	existing, err := readParquetFile[HistoryRecord](path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("reading existing archive %s: %w", path, err)
	}
	merged := mergeHistoryRecords(existing, incoming)

	if err := writeParquetFile(path, merged); err != nil {
		return 0, fmt.Errorf("writing history to %s: %w", path, err)
	}
	return len(merged), nil
}

// ReadHistoryParquet reads an exported archive back into domain records.
func ReadHistoryParquet(path string) ([]domain.QualityRecord, error) {
	rows, err := readParquetFile[HistoryRecord](path)
	if err != nil {
		return nil, err
	}
	out := make([]domain.QualityRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.QualityRecord{
			MonthKey:    r.Month,
			MetricValue: r.MetricValue,
			RecordedAt:  time.UnixMilli(r.RecordedAt).UTC(),
		})
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeHistoryRecords deduplicates records by (month, recorded_at), preferring
// incoming records. Results are sorted by timestamp, then month.
func mergeHistoryRecords(existing, incoming []HistoryRecord) []HistoryRecord {
	type key struct {
		month string
		ts    int64
	}
	seen := make(map[key]HistoryRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Month, r.RecordedAt}] = r
	}
	for _, r := range incoming {
		seen[key{r.Month, r.RecordedAt}] = r
	}

	merged := make([]HistoryRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].RecordedAt != merged[j].RecordedAt {
			return merged[i].RecordedAt < merged[j].RecordedAt
		}
		return merged[i].Month < merged[j].Month
	})
	return merged
}
