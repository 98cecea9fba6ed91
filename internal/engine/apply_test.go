package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frotaops/meterguard/internal/common"
	"github.com/frotaops/meterguard/internal/model"
	"github.com/frotaops/meterguard/internal/service"
	"github.com/frotaops/meterguard/internal/storage"
)

func suggestedAnomaly(row string, prev, cur, proposed float64) model.Anomaly {
	rec := usage("V1", row, 3, prev, cur)
	return model.Anomaly{
		Record:   rec,
		Interval: rec.Interval(),
		Kind:     model.IssueHighInterval,
		Severity: model.SeverityHigh,
		Suggestion: &model.Suggestion{
			Field:         model.FieldCurrent,
			ProposedValue: proposed,
			Method:        model.MethodCurrentDiv10,
			Rationale:     "extra-digit typo",
		},
	}
}

func TestApplySuggestion(t *testing.T) {
	primary := newMockUpdater("sqlite")
	secondary := newMockUpdater("sheets")
	audit := &mockAudit{}
	e := newTestEngine(t, &mockSource{}, asUpdaters(primary, secondary), audit, Options{})

	res := e.ApplySuggestion(context.Background(), suggestedAnomaly("7", 800, 8990, 899), "operator")
	require.NoError(t, res.Err)
	assert.Empty(t, res.StoreErrors)

	// Both stores updated.
	require.Len(t, primary.calls, 1)
	require.Len(t, secondary.calls, 1)
	assert.Equal(t, updateCall{rowIndex: "7", field: model.FieldCurrent, newValue: 899}, primary.calls[0])

	// Exactly one audit entry with the old and new values.
	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, "V1", entry.VehicleCode)
	assert.Equal(t, model.FieldCurrent, entry.FieldCorrected)
	assert.InDelta(t, 8990.0, entry.OldValue, 0.0001)
	assert.InDelta(t, 899.0, entry.NewValue, 0.0001)
	assert.Equal(t, model.MethodCurrentDiv10, entry.CorrectionMethod)
	assert.Equal(t, model.SourceAuto, entry.Source)
	assert.Equal(t, "operator", entry.AppliedBy)
	assert.False(t, entry.AppliedAt.IsZero())
}

func TestApplySuggestionWithoutSuggestion(t *testing.T) {
	primary := newMockUpdater("sqlite")
	audit := &mockAudit{}
	e := newTestEngine(t, &mockSource{}, asUpdaters(primary), audit, Options{})

	anomaly := model.Anomaly{Record: usage("V1", "7", 3, 1200, 9950)}
	res := e.ApplySuggestion(context.Background(), anomaly, "operator")
	assert.ErrorIs(t, res.Err, common.ErrNoSuggestion)
	assert.Empty(t, primary.calls)
	assert.Empty(t, audit.entries)
}

func TestApplyPrimaryFailureRollsNothingForward(t *testing.T) {
	primary := newMockUpdater("sqlite")
	primary.failOn["7"] = errors.New("disk full")
	secondary := newMockUpdater("sheets")
	audit := &mockAudit{}
	e := newTestEngine(t, &mockSource{}, asUpdaters(primary, secondary), audit, Options{})

	res := e.ApplySuggestion(context.Background(), suggestedAnomaly("7", 800, 8990, 899), "operator")
	require.Error(t, res.Err)

	// Secondary untouched, no audit entry.
	assert.Empty(t, secondary.calls)
	assert.Empty(t, audit.entries)
}

func TestApplySecondaryFailureIsBestEffort(t *testing.T) {
	primary := newMockUpdater("sqlite")
	secondary := newMockUpdater("sheets")
	secondary.failOn["7"] = errors.New("rate limited")
	audit := &mockAudit{}
	e := newTestEngine(t, &mockSource{}, asUpdaters(primary, secondary), audit, Options{})

	res := e.ApplySuggestion(context.Background(), suggestedAnomaly("7", 800, 8990, 899), "operator")
	require.NoError(t, res.Err)
	require.Contains(t, res.StoreErrors, "sheets")

	// Primary update stands and the audit entry is still written.
	assert.Len(t, primary.calls, 1)
	assert.Len(t, audit.entries, 1)
}

func TestApplyAuditFailureKeepsCorrection(t *testing.T) {
	primary := newMockUpdater("sqlite")
	audit := &mockAudit{err: errors.New("audit table locked")}
	e := newTestEngine(t, &mockSource{}, asUpdaters(primary), audit, Options{})

	res := e.ApplySuggestion(context.Background(), suggestedAnomaly("7", 800, 8990, 899), "operator")
	assert.NoError(t, res.Err)
	assert.Len(t, primary.calls, 1)
}

func TestApplyManual(t *testing.T) {
	primary := newMockUpdater("sqlite")
	audit := &mockAudit{}
	e := newTestEngine(t, &mockSource{}, asUpdaters(primary), audit, Options{})

	anomaly := model.Anomaly{Record: usage("V1", "7", 3, 1200, 9950)}
	res := e.ApplyManual(context.Background(), anomaly, model.FieldPrevious, 900, "operator")
	require.NoError(t, res.Err)

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, model.SourceManual, entry.Source)
	assert.Empty(t, string(entry.CorrectionMethod))
	assert.InDelta(t, 1200.0, entry.OldValue, 0.0001)
	assert.InDelta(t, 900.0, entry.NewValue, 0.0001)
}

func TestApplyAll(t *testing.T) {
	primary := newMockUpdater("sqlite")
	primary.failOn["3"] = errors.New("row vanished")
	audit := &mockAudit{}
	e := newTestEngine(t, &mockSource{}, asUpdaters(primary), audit, Options{})

	anomalies := []model.Anomaly{
		suggestedAnomaly("2", 800, 8990, 899),
		suggestedAnomaly("3", 700, 7990, 799),
		suggestedAnomaly("4", 600, 6990, 699),
		{Record: usage("V1", "5", 3, 1200, 9950)}, // unsuggested
	}

	var progressCalls int
	batch := e.ApplyAll(context.Background(), anomalies, "operator", func(done, total int, _ service.ApplyResult) {
		progressCalls++
		assert.Equal(t, 4, total)
	})

	assert.Equal(t, 2, batch.Fixed)
	assert.Equal(t, 2, batch.Errors)
	assert.Equal(t, 4, progressCalls)
	require.Len(t, batch.Results, 4)
	assert.Error(t, batch.Results[1].Err)
	assert.ErrorIs(t, batch.Results[3].Err, common.ErrNoSuggestion)

	// One audit entry per successful fix, none for failures.
	assert.Len(t, audit.entries, 2)
}

// TestCorrectionIdempotence runs the whole loop against real SQLite
// storage: after applying a sound suggestion, re-analysis must not flag
// the same record for the same issue again.
func TestCorrectionIdempotence(t *testing.T) {
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	require.NoError(t, store.Migrate(ctx))

	require.NoError(t, store.SaveUsageRecords(ctx, []model.UsageRecord{
		usage("V2", "2", 1, 600, 700),
		usage("V2", "3", 2, 700, 800),
		usage("V2", "4", 3, 800, 8990),
	}))

	e, err := New(store, []service.FieldUpdater{store}, store, nil, nil, nil, Options{})
	require.NoError(t, err)

	analysis, err := e.Analyze(ctx)
	require.NoError(t, err)
	require.Len(t, analysis.Anomalies, 1)
	flagged := analysis.Anomalies[0]
	require.True(t, flagged.HasSuggestion())

	res := e.ApplySuggestion(ctx, flagged, "operator")
	require.NoError(t, res.Err)

	again, err := e.Analyze(ctx)
	require.NoError(t, err)
	for _, a := range again.Anomalies {
		if a.Record.RowIndex == flagged.Record.RowIndex {
			assert.NotEqual(t, flagged.Kind, a.Kind, "record re-flagged for the same issue")
		}
	}

	// The fix is visible in the audit history.
	entries, err := store.ListRecentAuditEntries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "V2", entries[0].VehicleCode)
}
