// Package engine orchestrates the analysis pass and applies accepted
// corrections to every configured store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frotaops/meterguard/internal/baseline"
	"github.com/frotaops/meterguard/internal/detect"
	"github.com/frotaops/meterguard/internal/model"
	"github.com/frotaops/meterguard/internal/service"
	"github.com/frotaops/meterguard/internal/suggest"
)

// Construction errors.
var (
	ErrNoRecordSource = errors.New("engine requires a record source")
	ErrNoFieldUpdater = errors.New("engine requires at least one field updater")
	ErrNoAuditWriter  = errors.New("engine requires an audit writer")
)

// Options holds engine tuning knobs.
type Options struct {
	// BatchDelay is an optional pause between records during a batch
	// apply, to respect downstream rate limits.
	BatchDelay time.Duration
}

// Engine wires the analysis pipeline to the persistent stores. The first
// updater is the primary store: its failure fails the correction.
// Remaining updaters are best-effort secondaries.
type Engine struct {
	source    service.RecordSource
	audit     service.AuditWriter
	calc      *baseline.Calculator
	detector  *detect.Detector
	suggester *suggest.Suggester
	updaters  []service.FieldUpdater
	opts      Options
}

// New creates an engine over the given collaborators.
func New(
	source service.RecordSource,
	updaters []service.FieldUpdater,
	audit service.AuditWriter,
	calc *baseline.Calculator,
	detector *detect.Detector,
	suggester *suggest.Suggester,
	opts Options,
) (*Engine, error) {
	if source == nil {
		return nil, ErrNoRecordSource
	}
	if len(updaters) == 0 {
		return nil, ErrNoFieldUpdater
	}
	if audit == nil {
		return nil, ErrNoAuditWriter
	}
	if calc == nil {
		calc = baseline.NewCalculator(baseline.DefaultConfig())
	}
	if detector == nil {
		detector = detect.NewDetector(detect.DefaultConfig())
	}
	if suggester == nil {
		suggester = suggest.NewSuggester(suggest.DefaultConfig())
	}
	return &Engine{
		source:    source,
		updaters:  updaters,
		audit:     audit,
		calc:      calc,
		detector:  detector,
		suggester: suggester,
		opts:      opts,
	}, nil
}

// Analysis holds the outcome of one pass over an immutable snapshot.
type Analysis struct {
	Baselines map[string]model.VehicleBaseline
	Records   []model.UsageRecord
	Anomalies []model.Anomaly
}

// Pending returns the anomalies that carry a suggested correction.
func (a *Analysis) Pending() []model.Anomaly {
	var out []model.Anomaly
	for _, an := range a.Anomalies {
		if an.HasSuggestion() {
			out = append(out, an)
		}
	}
	return out
}

// Unsuggested returns the anomalies needing manual review.
func (a *Analysis) Unsuggested() []model.Anomaly {
	var out []model.Anomaly
	for _, an := range a.Anomalies {
		if !an.HasSuggestion() {
			out = append(out, an)
		}
	}
	return out
}

// Analyze fetches a fresh snapshot and runs the full detection pass:
// baselines, classification, and correction suggestions. The pass is pure
// over the snapshot; nothing is written.
func (e *Engine) Analyze(ctx context.Context) (*Analysis, error) {
	records, err := e.source.GetUsageRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch usage records: %w", err)
	}

	analysis := &Analysis{
		Records:   records,
		Baselines: e.calc.Compute(records),
	}
	if len(records) == 0 {
		return analysis, nil
	}

	groups := baseline.GroupByVehicle(records)
	analysis.Anomalies = e.detector.Detect(records, analysis.Baselines)

	for i := range analysis.Anomalies {
		a := &analysis.Anomalies[i]
		nctx := suggest.NeighborContext(groups[a.Record.VehicleCode], &a.Record)
		a.Suggestion = e.suggester.Suggest(*a, nctx)
	}

	slog.Info("analysis pass complete",
		"records", len(records),
		"vehicles", len(analysis.Baselines),
		"anomalies", len(analysis.Anomalies))

	return analysis, nil
}
