// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// VehicleCategory distinguishes how a unit's meter accumulates usage.
type VehicleCategory string

// Vehicle category constants.
const (
	// CategoryVehicle is tracked by odometer (distance).
	CategoryVehicle VehicleCategory = "vehicle"
	// CategoryEquipment is tracked by hour-meter (engine hours).
	CategoryEquipment VehicleCategory = "equipment"
)

// ParseVehicleCategory maps a raw category label to a VehicleCategory.
// Unrecognized labels are treated as odometer-tracked vehicles.
func ParseVehicleCategory(raw string) VehicleCategory {
	switch VehicleCategory(raw) {
	case CategoryEquipment:
		return CategoryEquipment
	default:
		return CategoryVehicle
	}
}

// UsageRecord represents a single fuel/usage entry for a vehicle.
type UsageRecord struct {
	Date               time.Time
	VehicleCode        string
	VehicleDescription string
	Category           VehicleCategory
	TimeOfDay          string // raw time-of-day as entered, kept for audit parity
	RowIndex           string // addresses the record in the persistent stores
	MeterPrevious      float64
	MeterCurrent       float64
	FuelQuantity       float64
}

// Interval returns the usage recorded by this entry: the current meter
// reading minus the previous one. Negative values indicate a data error.
func (r *UsageRecord) Interval() float64 {
	return r.MeterCurrent - r.MeterPrevious
}

// Before reports whether r is chronologically earlier than other,
// using the raw time-of-day string as a tiebreaker within a day.
func (r *UsageRecord) Before(other *UsageRecord) bool {
	if !r.Date.Equal(other.Date) {
		return r.Date.Before(other.Date)
	}
	return r.TimeOfDay < other.TimeOfDay
}

// GenerateHash creates a unique hash for duplicate detection on import.
func (r *UsageRecord) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%.2f:%.2f",
		r.VehicleCode,
		r.Date.Format("2006-01-02"),
		r.TimeOfDay,
		r.MeterCurrent,
		r.FuelQuantity)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
