// Package service defines the boundary contracts between the correction
// engine and its collaborating stores.
package service

import (
	"context"
	"time"

	"github.com/frotaops/meterguard/internal/model"
)

// RecordSource returns the current full set of usage records for the
// analysis window. Implementations must return stable row indexes so that
// corrections can address the same rows later.
type RecordSource interface {
	GetUsageRecords(ctx context.Context) ([]model.UsageRecord, error)
}

// FieldUpdater applies a single-field correction to one record in a
// persistent store. The engine fans each accepted correction out to every
// configured updater.
type FieldUpdater interface {
	// Name identifies the store in logs and failure reports.
	Name() string
	ApplyFieldUpdate(ctx context.Context, rowIndex string, field model.CorrectionField, newValue float64) error
}

// AuditWriter appends immutable correction audit entries.
type AuditWriter interface {
	AppendAuditEntry(ctx context.Context, entry *model.CorrectionAuditEntry) error
}

// AuditReader retrieves previously applied corrections, newest first.
type AuditReader interface {
	ListRecentAuditEntries(ctx context.Context, limit int) ([]model.CorrectionAuditEntry, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// ApplyResult reports the outcome of one correction across all stores.
type ApplyResult struct {
	Err         error
	VehicleCode string
	RowIndex    string
	// StoreErrors holds per-store failures on secondary stores; the
	// correction still counts as applied when the primary succeeded.
	StoreErrors map[string]error
}

// BatchResult summarizes a sequential apply-all run.
type BatchResult struct {
	Results  []ApplyResult
	Fixed    int
	Errors   int
	Duration time.Duration
}
