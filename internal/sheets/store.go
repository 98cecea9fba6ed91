package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/frotaops/meterguard/internal/common"
	"github.com/frotaops/meterguard/internal/model"
	"github.com/frotaops/meterguard/internal/normalize"
	"github.com/frotaops/meterguard/internal/service"
)

// Spreadsheet column layout, zero-based. Row indexes handed out by
// GetUsageRecords are 1-based sheet row numbers, so a correction can be
// addressed straight back to its cell.
const (
	colVehicleCode = iota
	colVehicleDescription
	colCategory
	colDate
	colTime
	colMeterPrevious
	colMeterCurrent
	colFuelQuantity
	columnCount
)

var meterColumns = map[model.CorrectionField]string{
	model.FieldPrevious: "F",
	model.FieldCurrent:  "G",
}

// Store implements the record source and field updater contracts on top
// of a Google Sheets spreadsheet.
type Store struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewStore creates a Google Sheets store.
func NewStore(ctx context.Context, config Config, logger *slog.Logger) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	svc, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		config:  config,
		service: svc,
		logger:  logger,
	}, nil
}

// Name identifies this store in logs and failure reports.
func (s *Store) Name() string {
	return "sheets"
}

// GetUsageRecords reads the full usage range and normalizes every row.
// Rows without a vehicle code are skipped; malformed numeric cells
// degrade to zero rather than failing the snapshot.
func (s *Store) GetUsageRecords(ctx context.Context) ([]model.UsageRecord, error) {
	readRange := fmt.Sprintf("%s!A%d:H", s.config.SheetName, s.config.HeaderRows+1)

	resp, err := s.service.Spreadsheets.Values.Get(s.config.SpreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSheetConnection, err)
	}

	records := make([]model.UsageRecord, 0, len(resp.Values))
	for i, row := range resp.Values {
		rowNumber := s.config.HeaderRows + 1 + i
		if rec, ok := recordFromRow(rowNumber, row); ok {
			records = append(records, rec)
		}
	}

	s.logger.Debug("loaded spreadsheet snapshot",
		"rows", len(resp.Values),
		"records", len(records))

	return records, nil
}

// recordFromRow maps one sheet row onto a UsageRecord.
func recordFromRow(rowNumber int, row []any) (model.UsageRecord, bool) {
	cell := func(col int) any {
		if col < len(row) {
			return row[col]
		}
		return nil
	}
	str := func(col int) string {
		if v, ok := cell(col).(string); ok {
			return v
		}
		return ""
	}

	code := str(colVehicleCode)
	if code == "" {
		return model.UsageRecord{}, false
	}

	date, ok := normalize.DateTime(str(colDate), str(colTime))
	if !ok {
		// A record without a date cannot be ordered; drop it from the
		// analysis snapshot.
		return model.UsageRecord{}, false
	}

	return model.UsageRecord{
		VehicleCode:        code,
		VehicleDescription: str(colVehicleDescription),
		Category:           model.ParseVehicleCategory(str(colCategory)),
		Date:               date,
		TimeOfDay:          str(colTime),
		RowIndex:           strconv.Itoa(rowNumber),
		MeterPrevious:      normalize.Decimal(cell(colMeterPrevious)),
		MeterCurrent:       normalize.Decimal(cell(colMeterCurrent)),
		FuelQuantity:       normalize.Decimal(cell(colFuelQuantity)),
	}, true
}

// ApplyFieldUpdate writes one corrected meter value back to its cell,
// retrying transient API failures.
func (s *Store) ApplyFieldUpdate(ctx context.Context, rowIndex string, field model.CorrectionField, newValue float64) error {
	column, ok := meterColumns[field]
	if !ok {
		return fmt.Errorf("unknown correction field %q", field)
	}
	if _, err := strconv.Atoi(rowIndex); err != nil {
		return fmt.Errorf("%w: bad row index %q", common.ErrRowNotFound, rowIndex)
	}

	cellRange := fmt.Sprintf("%s!%s%s", s.config.SheetName, column, rowIndex)
	body := &sheets.ValueRange{Values: [][]any{{newValue}}}

	retryOpts := service.RetryOptions{
		MaxAttempts:  s.config.RetryAttempts,
		InitialDelay: s.config.RetryDelay,
	}

	err := common.WithRetry(ctx, func() error {
		_, err := s.service.Spreadsheets.Values.
			Update(s.config.SpreadsheetID, cellRange, body).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		return err
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to update cell %s: %w", cellRange, err)
	}

	s.logger.Info("spreadsheet cell updated",
		"range", cellRange,
		"value", newValue)

	return nil
}

// createSheetsService creates a Google Sheets API service using either a
// service account key or OAuth2 refresh-token credentials.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = client.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}
