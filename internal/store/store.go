// Package store persists the quality gate's per-month baseline and its
// append-only audit history.
package store

import (
	"context"

	"reportbot/internal/domain"
)

// QualityStore persists the per-month quality baseline.
type QualityStore interface {
	// Get returns the current record for monthKey, or nil when none exists.
	Get(ctx context.Context, monthKey string) (*domain.QualityRecord, error)

	// Put overwrites the current record for rec.MonthKey and appends rec to
	// the audit history.
	Put(ctx context.Context, rec domain.QualityRecord) error

	// Swap atomically looks up the current record for rec.MonthKey and
	// replaces it with rec. It returns the superseded record, or nil when the
	// month had none.
	Swap(ctx context.Context, rec domain.QualityRecord) (*domain.QualityRecord, error)

	// History returns the audit history for monthKey in write order, or the
	// whole history when monthKey is empty.
	History(ctx context.Context, monthKey string) ([]domain.QualityRecord, error)

	// Clear deletes every baseline and history record and returns the number
	// of baselines removed. It is an administrative operation.
	Clear(ctx context.Context) (int64, error)

	// Close releases the underlying resources.
	Close() error
}
