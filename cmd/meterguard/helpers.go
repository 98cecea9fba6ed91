package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/frotaops/meterguard/internal/baseline"
	"github.com/frotaops/meterguard/internal/detect"
	"github.com/frotaops/meterguard/internal/engine"
	"github.com/frotaops/meterguard/internal/service"
	"github.com/frotaops/meterguard/internal/sheets"
	"github.com/frotaops/meterguard/internal/storage"
	"github.com/frotaops/meterguard/internal/suggest"
)

// expandPath expands ~ and environment variables in a file path.
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// openStorage opens and migrates the SQLite store.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := expandPath(viper.GetString("storage.db_path"))

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// sheetsStoreFromConfig builds the spreadsheet store when enabled.
// Returns nil without error when the spreadsheet integration is off.
func sheetsStoreFromConfig(ctx context.Context) (*sheets.Store, error) {
	if !viper.GetBool("sheets.enabled") {
		return nil, nil
	}

	cfg := sheets.DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if id := viper.GetString("sheets.spreadsheet_id"); id != "" {
		cfg.SpreadsheetID = id
	}
	if name := viper.GetString("sheets.sheet_name"); name != "" {
		cfg.SheetName = name
	}
	if rows := viper.GetInt("sheets.header_rows"); rows > 0 {
		cfg.HeaderRows = rows
	}

	return sheets.NewStore(ctx, cfg, slog.Default())
}

// buildEngine wires the engine from configuration: SQLite is always the
// primary store; the spreadsheet, when enabled, is read from optionally
// and written to as a best-effort secondary.
func buildEngine(ctx context.Context) (*engine.Engine, *storage.SQLiteStorage, error) {
	store, err := openStorage(ctx)
	if err != nil {
		return nil, nil, err
	}

	sheetStore, err := sheetsStoreFromConfig(ctx)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	var source service.RecordSource = store
	updaters := []service.FieldUpdater{store}
	if sheetStore != nil {
		updaters = append(updaters, sheetStore)
		if viper.GetBool("sheets.source") {
			source = sheetStore
		}
	}

	calc := baseline.NewCalculator(baseline.Config{
		MaxPlausibleInterval: viper.GetFloat64("detection.max_plausible_interval"),
	})
	detector := detect.NewDetector(detect.Config{
		FlagThreshold:   viper.GetFloat64("detection.flag_threshold"),
		MediumThreshold: viper.GetFloat64("detection.medium_threshold"),
		HighThreshold:   viper.GetFloat64("detection.high_threshold"),
	})
	suggester := suggest.NewSuggester(suggest.Config{
		TypoBoundMultiplier:    viper.GetFloat64("suggestion.typo_bound_multiplier"),
		DecimalShiftMultiplier: viper.GetFloat64("suggestion.decimal_shift_multiplier"),
		DecimalShiftAbsolute:   viper.GetFloat64("suggestion.decimal_shift_absolute"),
		FallbackInterval:       viper.GetFloat64("suggestion.fallback_interval"),
		ResyncTolerance:        viper.GetFloat64("suggestion.resync_tolerance"),
	})

	eng, err := engine.New(source, updaters, store, calc, detector, suggester, engine.Options{
		BatchDelay: time.Duration(viper.GetInt("apply.batch_delay_ms")) * time.Millisecond,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	return eng, store, nil
}

// currentUser resolves the operator identity for audit attribution: the
// --user flag when set, otherwise the OS user.
func currentUser(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}
