package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/frotaops/meterguard/internal/model"
)

// AppendAuditEntry records one applied correction. Entries are immutable;
// nothing in the application updates or deletes them.
func (s *SQLiteStorage) AppendAuditEntry(ctx context.Context, entry *model.CorrectionAuditEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAuditEntry(entry); err != nil {
		return err
	}

	var method sql.NullString
	if entry.CorrectionMethod != "" {
		method = sql.NullString{String: string(entry.CorrectionMethod), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO correction_audit (
			vehicle_code, record_date, record_time, field_corrected,
			old_value, new_value, correction_method, source, applied_by, applied_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.VehicleCode,
		entry.RecordDate,
		entry.RecordTime,
		string(entry.FieldCorrected),
		entry.OldValue,
		entry.NewValue,
		method,
		string(entry.Source),
		entry.AppliedBy,
		entry.AppliedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListRecentAuditEntries returns the most recent corrections, newest first.
func (s *SQLiteStorage) ListRecentAuditEntries(ctx context.Context, limit int) ([]model.CorrectionAuditEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT vehicle_code, record_date, record_time, field_corrected,
		       old_value, new_value, correction_method, source, applied_by, applied_at
		FROM correction_audit
		ORDER BY applied_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.CorrectionAuditEntry
	for rows.Next() {
		var e model.CorrectionAuditEntry
		var field, source string
		var method, recordTime sql.NullString

		if err := rows.Scan(
			&e.VehicleCode,
			&e.RecordDate,
			&recordTime,
			&field,
			&e.OldValue,
			&e.NewValue,
			&method,
			&source,
			&e.AppliedBy,
			&e.AppliedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		e.RecordTime = recordTime.String
		e.FieldCorrected = model.CorrectionField(field)
		e.Source = model.CorrectionSource(source)
		e.CorrectionMethod = model.CorrectionMethod(method.String)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}

	return entries, nil
}

// CountAuditEntries returns the total number of audit entries.
func (s *SQLiteStorage) CountAuditEntries(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM correction_audit`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}
