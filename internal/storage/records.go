package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/frotaops/meterguard/internal/common"
	"github.com/frotaops/meterguard/internal/model"
)

// SaveUsageRecords inserts records, silently skipping duplicates (matched
// by content hash), so repeated imports of the same sheet are idempotent.
func (s *SQLiteStorage) SaveUsageRecords(ctx context.Context, records []model.UsageRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecords(records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO usage_records (
			hash, row_index, vehicle_code, vehicle_description, category,
			date, time_of_day, meter_previous, meter_current, fuel_quantity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range records {
		r := &records[i]
		if _, err := stmt.ExecContext(ctx,
			r.GenerateHash(),
			r.RowIndex,
			r.VehicleCode,
			r.VehicleDescription,
			string(r.Category),
			r.Date,
			r.TimeOfDay,
			r.MeterPrevious,
			r.MeterCurrent,
			r.FuelQuantity,
		); err != nil {
			return fmt.Errorf("failed to insert record %s/%s: %w", r.VehicleCode, r.RowIndex, err)
		}
	}

	return tx.Commit()
}

// GetUsageRecords returns the full record set for the analysis window.
func (s *SQLiteStorage) GetUsageRecords(ctx context.Context) ([]model.UsageRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT row_index, vehicle_code, vehicle_description, category,
		       date, time_of_day, meter_previous, meter_current, fuel_quantity
		FROM usage_records
		ORDER BY vehicle_code, date, time_of_day
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.UsageRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return records, nil
}

// GetUsageRecordByRowIndex fetches a single record by its store address.
func (s *SQLiteStorage) GetUsageRecordByRowIndex(ctx context.Context, rowIndex string) (*model.UsageRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(rowIndex, "rowIndex"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT row_index, vehicle_code, vehicle_description, category,
		       date, time_of_day, meter_previous, meter_current, fuel_quantity
		FROM usage_records
		WHERE row_index = ?
	`, rowIndex)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: record %s", common.ErrNotFound, rowIndex)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CountUsageRecords returns the number of stored records.
func (s *SQLiteStorage) CountUsageRecords(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usage_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// ApplyFieldUpdate writes one corrected meter value to the addressed row.
func (s *SQLiteStorage) ApplyFieldUpdate(ctx context.Context, rowIndex string, field model.CorrectionField, newValue float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(rowIndex, "rowIndex"); err != nil {
		return err
	}
	if err := validateField(field); err != nil {
		return err
	}
	if newValue < 0 {
		return fmt.Errorf("%w: %f", ErrNegativeReading, newValue)
	}

	column := "meter_previous"
	if field == model.FieldCurrent {
		column = "meter_current"
	}

	// Column name comes from the validated enum above, never from input.
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE usage_records SET %s = ? WHERE row_index = ?`, column),
		newValue, rowIndex)
	if err != nil {
		return fmt.Errorf("failed to update record %s: %w", rowIndex, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: record %s", common.ErrNotFound, rowIndex)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.UsageRecord, error) {
	var r model.UsageRecord
	var category string
	var description, timeOfDay sql.NullString
	var date time.Time

	err := row.Scan(
		&r.RowIndex,
		&r.VehicleCode,
		&description,
		&category,
		&date,
		&timeOfDay,
		&r.MeterPrevious,
		&r.MeterCurrent,
		&r.FuelQuantity,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("failed to scan record: %w", err)
	}

	r.VehicleDescription = description.String
	r.TimeOfDay = timeOfDay.String
	r.Category = model.ParseVehicleCategory(category)
	r.Date = date
	return r, nil
}
