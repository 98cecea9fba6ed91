package model

import "time"

// CorrectionSource records whether a fix came from an accepted suggestion
// or a manually entered value.
type CorrectionSource string

// Correction source constants.
const (
	SourceAuto   CorrectionSource = "auto"
	SourceManual CorrectionSource = "manual"
)

// CorrectionAuditEntry is the immutable record of one applied correction.
// Exactly one entry is written per accepted correction; the engine never
// updates or deletes entries.
type CorrectionAuditEntry struct {
	AppliedAt        time.Time
	RecordDate       time.Time
	VehicleCode      string
	RecordTime       string
	FieldCorrected   CorrectionField
	CorrectionMethod CorrectionMethod // empty for manual edits with no heuristic
	Source           CorrectionSource
	AppliedBy        string
	OldValue         float64
	NewValue         float64
}
