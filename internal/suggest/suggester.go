// Package suggest proposes numeric fixes for flagged usage records by
// trying an ordered set of correction heuristics against the record's
// chronological neighbors. The first applicable heuristic wins; anomalies
// no heuristic can fix stay in the manual-review set.
package suggest

import (
	"fmt"

	"github.com/frotaops/meterguard/internal/model"
)

// Config holds the tunable bounds of the correction heuristics.
type Config struct {
	// TypoBoundMultiplier bounds the interval produced by the digit-typo
	// heuristics: a corrected interval must stay under baseline × this.
	TypoBoundMultiplier float64
	// DecimalShiftMultiplier bounds the decimal-shift heuristic the same way.
	DecimalShiftMultiplier float64
	// DecimalShiftAbsolute bounds the decimal-shift heuristic when the
	// vehicle has no baseline.
	DecimalShiftAbsolute float64
	// FallbackInterval substitutes for the baseline when backfilling a
	// negative reading on a vehicle with no baseline.
	FallbackInterval float64
	// ResyncTolerance is the largest previous-reading drift, in meter
	// units, that the plain re-sync fallback ignores.
	ResyncTolerance float64
}

// DefaultConfig returns the standard heuristic bounds.
func DefaultConfig() Config {
	return Config{
		TypoBoundMultiplier:    3,
		DecimalShiftMultiplier: 2,
		DecimalShiftAbsolute:   200,
		FallbackInterval:       100,
		ResyncTolerance:        1,
	}
}

// Context gives a heuristic access to the anomaly's chronological
// neighborhood within its vehicle's record sequence.
type Context struct {
	// Previous is the chronologically preceding record, nil for the first.
	Previous *model.UsageRecord
	// HasLater reports whether any record follows this one.
	HasLater bool
}

// NeighborContext locates rec inside its vehicle's chronologically sorted
// group and returns the surrounding context. Records are matched by row
// index, the stable store identifier.
func NeighborContext(sorted []model.UsageRecord, rec *model.UsageRecord) Context {
	for i := range sorted {
		if sorted[i].RowIndex == rec.RowIndex {
			ctx := Context{HasLater: i < len(sorted)-1}
			if i > 0 {
				ctx.Previous = &sorted[i-1]
			}
			return ctx
		}
	}
	return Context{}
}

// heuristic is one correction attempt. Heuristics run in a fixed order and
// the first one returning a suggestion wins; later ones are not attempted.
type heuristic func(cfg Config, a *model.Anomaly, ctx Context) *model.Suggestion

var heuristics = []heuristic{
	currentDividedByTen,
	previousTimesTen,
	decimalShift,
	negativeBackfill,
	negativePreviousRecord,
	zeroPreviousBackfill,
	previousResync,
}

// Suggester proposes corrections for anomalies.
type Suggester struct {
	cfg Config
}

// NewSuggester creates a Suggester with the given bounds.
func NewSuggester(cfg Config) *Suggester {
	def := DefaultConfig()
	if cfg.TypoBoundMultiplier <= 0 {
		cfg.TypoBoundMultiplier = def.TypoBoundMultiplier
	}
	if cfg.DecimalShiftMultiplier <= 0 {
		cfg.DecimalShiftMultiplier = def.DecimalShiftMultiplier
	}
	if cfg.DecimalShiftAbsolute <= 0 {
		cfg.DecimalShiftAbsolute = def.DecimalShiftAbsolute
	}
	if cfg.FallbackInterval <= 0 {
		cfg.FallbackInterval = def.FallbackInterval
	}
	if cfg.ResyncTolerance <= 0 {
		cfg.ResyncTolerance = def.ResyncTolerance
	}
	return &Suggester{cfg: cfg}
}

// Suggest runs the heuristics against one anomaly. Returns nil when no
// heuristic applies.
func (s *Suggester) Suggest(a model.Anomaly, ctx Context) *model.Suggestion {
	for _, h := range heuristics {
		if sug := h(s.cfg, &a, ctx); sug != nil {
			return sug
		}
	}
	return nil
}

// currentDividedByTen models an extra-digit typo in the current reading.
func currentDividedByTen(cfg Config, a *model.Anomaly, _ Context) *model.Suggestion {
	if a.Kind != model.IssueHighInterval {
		return nil
	}
	proposed := a.Record.MeterCurrent / 10
	newInterval := proposed - a.Record.MeterPrevious
	if newInterval <= 0 {
		return nil
	}
	if a.Baseline.HasBaseline() && newInterval >= a.Baseline.AverageInterval*cfg.TypoBoundMultiplier {
		return nil
	}
	return &model.Suggestion{
		Field:         model.FieldCurrent,
		ProposedValue: proposed,
		Method:        model.MethodCurrentDiv10,
		Rationale: fmt.Sprintf(
			"current reading %.1f looks like an extra-digit typo; %.1f gives a %.1f unit interval",
			a.Record.MeterCurrent, proposed, newInterval),
	}
}

// previousTimesTen models a missing-digit typo in the previous reading.
func previousTimesTen(cfg Config, a *model.Anomaly, _ Context) *model.Suggestion {
	if a.Kind != model.IssueHighInterval {
		return nil
	}
	proposed := a.Record.MeterPrevious * 10
	newInterval := a.Record.MeterCurrent - proposed
	if newInterval <= 0 {
		return nil
	}
	if a.Baseline.HasBaseline() && newInterval >= a.Baseline.AverageInterval*cfg.TypoBoundMultiplier {
		return nil
	}
	return &model.Suggestion{
		Field:         model.FieldPrevious,
		ProposedValue: proposed,
		Method:        model.MethodPreviousMul10,
		Rationale: fmt.Sprintf(
			"previous reading %.1f looks like a missing-digit typo; %.1f gives a %.1f unit interval",
			a.Record.MeterPrevious, proposed, newInterval),
	}
}

// decimalShift models a misplaced decimal point in the current reading.
// Numerically the same fix as currentDividedByTen, under a tighter bound;
// the distinct method tag mirrors how the source data labels these.
func decimalShift(cfg Config, a *model.Anomaly, _ Context) *model.Suggestion {
	if a.Kind != model.IssueHighInterval {
		return nil
	}
	proposed := a.Record.MeterCurrent / 10
	newInterval := proposed - a.Record.MeterPrevious
	if newInterval <= 0 {
		return nil
	}
	bound := cfg.DecimalShiftAbsolute
	if a.Baseline.HasBaseline() {
		bound = a.Baseline.AverageInterval * cfg.DecimalShiftMultiplier
	}
	if newInterval >= bound {
		return nil
	}
	return &model.Suggestion{
		Field:         model.FieldCurrent,
		ProposedValue: proposed,
		Method:        model.MethodDecimalShift,
		Rationale: fmt.Sprintf(
			"current reading %.1f looks like a misplaced decimal point; shifting gives %.1f",
			a.Record.MeterCurrent, proposed),
	}
}

// negativeBackfill rebuilds a broken previous reading from the current one
// minus the vehicle's normal interval. Only attempted when a later record
// exists to anchor the sequence.
func negativeBackfill(cfg Config, a *model.Anomaly, ctx Context) *model.Suggestion {
	if a.Kind != model.IssueNegativeValue || !ctx.HasLater {
		return nil
	}
	interval := cfg.FallbackInterval
	if a.Baseline.HasBaseline() {
		interval = a.Baseline.AverageInterval
	}
	proposed := a.Record.MeterCurrent - interval
	if proposed <= 0 {
		return nil
	}
	return &model.Suggestion{
		Field:         model.FieldPrevious,
		ProposedValue: proposed,
		Method:        model.MethodBaselineBackfill,
		Rationale: fmt.Sprintf(
			"previous reading %.1f exceeds the current one; backfilled from current minus the %.1f unit usual interval",
			a.Record.MeterPrevious, interval),
	}
}

// negativePreviousRecord repairs a negative interval using the preceding
// record's own current reading, when that reading is usable.
func negativePreviousRecord(_ Config, a *model.Anomaly, ctx Context) *model.Suggestion {
	if a.Kind != model.IssueNegativeValue || ctx.Previous == nil {
		return nil
	}
	prior := ctx.Previous.MeterCurrent
	if prior <= 0 || prior >= a.Record.MeterCurrent {
		return nil
	}
	return &model.Suggestion{
		Field:         model.FieldPrevious,
		ProposedValue: prior,
		Method:        model.MethodPreviousRecord,
		Rationale: fmt.Sprintf(
			"previous reading replaced with the prior record's current reading %.1f", prior),
	}
}

// zeroPreviousBackfill fills a missing previous reading from the prior
// record's current one.
func zeroPreviousBackfill(_ Config, a *model.Anomaly, ctx Context) *model.Suggestion {
	if a.Kind != model.IssueZeroPrevious || ctx.Previous == nil {
		return nil
	}
	prior := ctx.Previous.MeterCurrent
	if prior <= 0 {
		return nil
	}
	return &model.Suggestion{
		Field:         model.FieldPrevious,
		ProposedValue: prior,
		Method:        model.MethodPreviousRecord,
		Rationale: fmt.Sprintf(
			"previous reading was never entered; carried forward %.1f from the prior record", prior),
	}
}

// previousResync is the last resort for any anomaly kind: when the recorded
// previous reading has drifted from the prior record's current reading,
// re-adopt that value with no typo theory attached.
func previousResync(cfg Config, a *model.Anomaly, ctx Context) *model.Suggestion {
	if ctx.Previous == nil {
		return nil
	}
	prior := ctx.Previous.MeterCurrent
	drift := a.Record.MeterPrevious - prior
	if drift < 0 {
		drift = -drift
	}
	if drift <= cfg.ResyncTolerance {
		return nil
	}
	return &model.Suggestion{
		Field:         model.FieldPrevious,
		ProposedValue: prior,
		Method:        model.MethodResync,
		Rationale: fmt.Sprintf(
			"previous reading %.1f disagrees with the prior record's current reading %.1f; re-synced",
			a.Record.MeterPrevious, prior),
	}
}
