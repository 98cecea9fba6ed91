// Package detect flags usage records whose meter readings are inconsistent
// with the vehicle's own history.
package detect

import (
	"sort"

	"github.com/frotaops/meterguard/internal/model"
)

// Config holds the deviation thresholds, in percent relative to the
// vehicle baseline. A record is flagged when its deviation strictly
// exceeds FlagThreshold; Medium and High bound the severity bands
// inclusively from below.
type Config struct {
	FlagThreshold   float64
	MediumThreshold float64
	HighThreshold   float64
}

// DefaultConfig returns the standard detection thresholds.
func DefaultConfig() Config {
	return Config{
		FlagThreshold:   200,
		MediumThreshold: 300,
		HighThreshold:   500,
	}
}

// rule is one classification check. Rules are evaluated in a fixed order
// and the first match wins, so every record carries at most one issue kind.
type rule struct {
	match func(cfg Config, interval float64, rec *model.UsageRecord, b *model.VehicleBaseline) (model.Severity, bool)
	kind  model.IssueKind
}

var rules = []rule{
	{
		kind: model.IssueNegativeValue,
		match: func(_ Config, interval float64, _ *model.UsageRecord, _ *model.VehicleBaseline) (model.Severity, bool) {
			if interval < 0 {
				return model.SeverityHigh, true
			}
			return "", false
		},
	},
	{
		kind: model.IssueZeroPrevious,
		match: func(_ Config, _ float64, rec *model.UsageRecord, _ *model.VehicleBaseline) (model.Severity, bool) {
			if rec.MeterPrevious == 0 && rec.MeterCurrent > 0 {
				return model.SeverityMedium, true
			}
			return "", false
		},
	},
	{
		kind: model.IssueHighInterval,
		match: func(cfg Config, interval float64, _ *model.UsageRecord, b *model.VehicleBaseline) (model.Severity, bool) {
			if !b.HasBaseline() || interval <= 0 {
				return "", false
			}
			deviation := deviationPercent(interval, b.AverageInterval)
			if deviation <= cfg.FlagThreshold {
				return "", false
			}
			switch {
			case deviation >= cfg.HighThreshold:
				return model.SeverityHigh, true
			case deviation >= cfg.MediumThreshold:
				return model.SeverityMedium, true
			default:
				return model.SeverityLow, true
			}
		},
	},
}

// Detector classifies records against per-vehicle baselines.
type Detector struct {
	cfg Config
}

// NewDetector creates a Detector with the given thresholds.
func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.FlagThreshold <= 0 {
		cfg.FlagThreshold = def.FlagThreshold
	}
	if cfg.MediumThreshold <= 0 {
		cfg.MediumThreshold = def.MediumThreshold
	}
	if cfg.HighThreshold <= 0 {
		cfg.HighThreshold = def.HighThreshold
	}
	return &Detector{cfg: cfg}
}

// Classify evaluates a single record and returns its anomaly, if any.
// Records of vehicles without a baseline still hit the negative-value and
// zero-previous checks; only deviation checks are suppressed.
func (d *Detector) Classify(rec model.UsageRecord, b model.VehicleBaseline) (model.Anomaly, bool) {
	interval := rec.Interval()

	for _, r := range rules {
		severity, ok := r.match(d.cfg, interval, &rec, &b)
		if !ok {
			continue
		}
		a := model.Anomaly{
			Record:   rec,
			Baseline: b,
			Interval: interval,
			Severity: severity,
			Kind:     r.kind,
		}
		if b.HasBaseline() {
			a.DeviationPercent = deviationPercent(interval, b.AverageInterval)
		}
		return a, true
	}
	return model.Anomaly{}, false
}

// Detect classifies every record in the snapshot, ordered for triage:
// severity high to low, ties newest first.
func (d *Detector) Detect(records []model.UsageRecord, baselines map[string]model.VehicleBaseline) []model.Anomaly {
	var anomalies []model.Anomaly
	for _, rec := range records {
		if a, ok := d.Classify(rec, baselines[rec.VehicleCode]); ok {
			anomalies = append(anomalies, a)
		}
	}

	sort.SliceStable(anomalies, func(i, j int) bool {
		if anomalies[i].Severity != anomalies[j].Severity {
			return anomalies[i].Severity.Rank() < anomalies[j].Severity.Rank()
		}
		return anomalies[j].Record.Date.Before(anomalies[i].Record.Date)
	})

	return anomalies
}

func deviationPercent(interval, average float64) float64 {
	return (interval - average) / average * 100
}
