package store

import (
	"context"
	"log/slog"
)

// BestEffort wraps a Store so that storage failures never reach request
// handling. A failed load reads as an empty collection and a failed save is
// logged and dropped.
type BestEffort struct {
	backend Store
	logger  *slog.Logger
}

// NewBestEffort wraps backend, reporting failures to logger.
func NewBestEffort(backend Store, logger *slog.Logger) *BestEffort {
	return &BestEffort{backend: backend, logger: logger}
}

// Load returns the stored records, or an empty map if they cannot be read.
func (b *BestEffort) Load(ctx context.Context) Records {
	records, err := b.backend.Load(ctx)
	if err != nil {
		storeErrorsTotal.WithLabelValues(opLoad).Inc()
		b.logger.Error("failed to read record store", "error", err)
		return Records{}
	}
	return records
}

// Save persists records and reports whether it succeeded. Failures are
// logged, never returned.
func (b *BestEffort) Save(ctx context.Context, records Records) bool {
	if err := b.backend.Save(ctx, records); err != nil {
		storeErrorsTotal.WithLabelValues(opSave).Inc()
		b.logger.Error("failed to persist record store", "error", err, "records", len(records))
		return false
	}
	return true
}

// Close closes the wrapped backend.
func (b *BestEffort) Close() error {
	return b.backend.Close()
}
