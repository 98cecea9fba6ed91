package main

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/frotaops/meterguard/internal/cli"
	"github.com/frotaops/meterguard/internal/model"
	"github.com/frotaops/meterguard/internal/normalize"

	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import usage records from a CSV export",
		Long: `Import fuel/usage records from a CSV export of the fleet spreadsheet.

Expected columns, in order: vehicle code, description, category, date
(dd/mm/yyyy), time, previous meter reading, current meter reading, fuel
quantity. Numbers may use Brazilian formatting ("1.234,56").

Imports are idempotent: records already present are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().Int("skip-rows", 1, "Number of header rows to skip")

	return cmd
}

const importColumns = 8

func runImport(cmd *cobra.Command, args []string) error {
	skipRows, _ := cmd.Flags().GetInt("skip-rows")
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read CSV: %w", err)
	}

	var (
		records []model.UsageRecord
		skipped int
	)
	for i, row := range rows {
		if i < skipRows {
			continue
		}
		rec, ok := recordFromCSVRow(i+1, row)
		if !ok {
			skipped++
			slog.Warn("Skipping unparseable row", "row", i+1)
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return fmt.Errorf("no importable records in %s", path)
	}

	ctx := cmd.Context()
	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	before, err := store.CountUsageRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}
	if err := store.SaveUsageRecords(ctx, records); err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}
	after, err := store.CountUsageRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}

	imported := after - before
	duplicates := len(records) - imported

	fmt.Println(cli.SuccessStyle.Render(
		fmt.Sprintf("✓ Imported %d records (%d duplicates, %d skipped)", imported, duplicates, skipped)))
	return nil
}

// recordFromCSVRow maps one CSV row to a UsageRecord. The row number is
// 1-based, matching the spreadsheet row the export came from.
func recordFromCSVRow(rowNumber int, row []string) (model.UsageRecord, bool) {
	if len(row) < importColumns {
		return model.UsageRecord{}, false
	}

	date, ok := normalize.Date(row[3])
	if !ok {
		return model.UsageRecord{}, false
	}
	code := row[0]
	if code == "" {
		return model.UsageRecord{}, false
	}

	return model.UsageRecord{
		VehicleCode:        code,
		VehicleDescription: row[1],
		Category:           model.ParseVehicleCategory(row[2]),
		Date:               date,
		TimeOfDay:          row[4],
		RowIndex:           strconv.Itoa(rowNumber),
		MeterPrevious:      normalize.Decimal(row[5]),
		MeterCurrent:       normalize.Decimal(row[6]),
		FuelQuantity:       normalize.Decimal(row[7]),
	}, true
}
