package model

// Severity grades how urgently an anomaly needs operator attention.
type Severity string

// Severity constants, ordered high to low.
const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Rank returns a sortable weight for the severity (lower sorts first).
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}

// IssueKind categorizes why a record was flagged.
type IssueKind string

// Issue kind constants.
const (
	IssueNegativeValue      IssueKind = "negative_value"
	IssueZeroPrevious       IssueKind = "zero_previous"
	IssueHighInterval       IssueKind = "high_interval"
	IssueSuspiciousSequence IssueKind = "suspicious_sequence"
)

// CorrectionField names which half of the meter pair a correction targets.
type CorrectionField string

// Correction field constants.
const (
	FieldPrevious CorrectionField = "previous"
	FieldCurrent  CorrectionField = "current"
)

// CorrectionMethod tags which heuristic produced a proposed value.
type CorrectionMethod string

// Correction method constants. CurrentDiv10 and DecimalShift compute the
// same value; the source data distinguishes them by label only and the two
// tags are kept separate on purpose.
const (
	MethodCurrentDiv10     CorrectionMethod = "current_div10"
	MethodPreviousMul10    CorrectionMethod = "previous_mul10"
	MethodDecimalShift     CorrectionMethod = "decimal_shift"
	MethodBaselineBackfill CorrectionMethod = "baseline_backfill"
	MethodPreviousRecord   CorrectionMethod = "previous_record_value"
	MethodResync           CorrectionMethod = "resync"
)

// Suggestion is a proposed numeric fix for an anomalous record.
type Suggestion struct {
	Field         CorrectionField
	ProposedValue float64
	Rationale     string
	Method        CorrectionMethod
}

// Anomaly is one flagged UsageRecord together with the computed evidence.
// Anomalies are transient: recomputed on each analysis pass and only ever
// persisted indirectly, through an applied correction's audit entry.
type Anomaly struct {
	Record           UsageRecord
	Baseline         VehicleBaseline
	Interval         float64
	DeviationPercent float64
	Severity         Severity
	Kind             IssueKind
	Suggestion       *Suggestion
}

// HasSuggestion reports whether a correction heuristic produced a proposal.
// Anomalies without one stay in the manual-review set.
func (a *Anomaly) HasSuggestion() bool {
	return a.Suggestion != nil
}
