// Package baseline derives each vehicle's expected normal usage interval
// from its own record history.
package baseline

import (
	"sort"

	"github.com/frotaops/meterguard/internal/model"
)

// Config holds the tunable parameters of the baseline calculation.
type Config struct {
	// MaxPlausibleInterval excludes consecutive-reading deltas at or above
	// this value from the average; they are data-entry errors, not usage.
	MaxPlausibleInterval float64
}

// DefaultConfig returns the standard baseline parameters.
func DefaultConfig() Config {
	return Config{MaxPlausibleInterval: 50000}
}

// Calculator computes per-vehicle baselines from an in-memory snapshot.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a Calculator with the given parameters.
func NewCalculator(cfg Config) *Calculator {
	if cfg.MaxPlausibleInterval <= 0 {
		cfg.MaxPlausibleInterval = DefaultConfig().MaxPlausibleInterval
	}
	return &Calculator{cfg: cfg}
}

// GroupByVehicle partitions records by vehicle code, each group sorted
// chronologically.
func GroupByVehicle(records []model.UsageRecord) map[string][]model.UsageRecord {
	groups := make(map[string][]model.UsageRecord)
	for _, r := range records {
		groups[r.VehicleCode] = append(groups[r.VehicleCode], r)
	}
	for code := range groups {
		SortChronological(groups[code])
	}
	return groups
}

// SortChronological orders records by date, then time-of-day.
func SortChronological(records []model.UsageRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Before(&records[j])
	})
}

// Compute derives a baseline for every vehicle present in the snapshot.
// The baseline interval between consecutive records is the delta of their
// previous readings, which keeps a mistyped current reading from polluting
// the average. Vehicles without at least one positive, plausible interval
// get a zero average, which suppresses deviation checks downstream.
func (c *Calculator) Compute(records []model.UsageRecord) map[string]model.VehicleBaseline {
	baselines := make(map[string]model.VehicleBaseline)

	for code, group := range GroupByVehicle(records) {
		b := model.VehicleBaseline{
			VehicleCode: code,
			Category:    group[0].Category,
			RecordCount: len(group),
		}

		var sum float64
		var usable int
		for i := 1; i < len(group); i++ {
			interval := pairInterval(&group[i-1], &group[i])
			if interval <= 0 || interval >= c.cfg.MaxPlausibleInterval {
				continue
			}
			sum += interval
			usable++
		}
		if usable > 0 {
			b.AverageInterval = sum / float64(usable)
		}

		baselines[code] = b
	}

	return baselines
}

func pairInterval(earlier, later *model.UsageRecord) float64 {
	return later.MeterPrevious - earlier.MeterPrevious
}
