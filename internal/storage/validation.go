package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/frotaops/meterguard/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrEmptySlice      = errors.New("slice cannot be empty")
	ErrInvalidRecord   = errors.New("invalid usage record")
	ErrInvalidField    = errors.New("invalid correction field")
	ErrInvalidAudit    = errors.New("invalid audit entry")
	ErrNegativeReading = errors.New("meter reading cannot be negative")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateField ensures a correction field names one half of the meter pair.
func validateField(field model.CorrectionField) error {
	switch field {
	case model.FieldPrevious, model.FieldCurrent:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
}

// validateRecords validates a slice of usage records.
func validateRecords(records []model.UsageRecord) error {
	if records == nil {
		return fmt.Errorf("%w: records", ErrNilParameter)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: records", ErrEmptySlice)
	}
	for i := range records {
		if err := validateRecord(&records[i]); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

func validateRecord(r *model.UsageRecord) error {
	if strings.TrimSpace(r.VehicleCode) == "" {
		return fmt.Errorf("%w: missing vehicle code", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.RowIndex) == "" {
		return fmt.Errorf("%w: missing row index", ErrInvalidRecord)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidRecord)
	}
	return nil
}

// validateAuditEntry validates an audit entry before insertion.
func validateAuditEntry(e *model.CorrectionAuditEntry) error {
	if e == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if strings.TrimSpace(e.VehicleCode) == "" {
		return fmt.Errorf("%w: missing vehicle code", ErrInvalidAudit)
	}
	if err := validateField(e.FieldCorrected); err != nil {
		return err
	}
	if strings.TrimSpace(e.AppliedBy) == "" {
		return fmt.Errorf("%w: missing applied_by", ErrInvalidAudit)
	}
	if e.AppliedAt.IsZero() {
		return fmt.Errorf("%w: missing applied_at", ErrInvalidAudit)
	}
	return nil
}
