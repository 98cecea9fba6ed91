package model

// VehicleBaseline is the derived "normal usage" profile for one vehicle.
// It is recomputed from the full record set on every analysis pass and
// never persisted.
type VehicleBaseline struct {
	VehicleCode     string
	Category        VehicleCategory
	AverageInterval float64
	RecordCount     int
}

// HasBaseline reports whether enough usable history exists for
// deviation-based checks. A zero average suppresses them.
func (b *VehicleBaseline) HasBaseline() bool {
	return b != nil && b.AverageInterval > 0
}
