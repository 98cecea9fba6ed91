package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frotaops/meterguard/internal/common"
	"github.com/frotaops/meterguard/internal/model"
	"github.com/frotaops/meterguard/internal/service"
)

// ApplySuggestion applies an anomaly's suggested correction. appliedBy
// identifies the operator accepting the fix and ends up in the audit trail.
func (e *Engine) ApplySuggestion(ctx context.Context, anomaly model.Anomaly, appliedBy string) service.ApplyResult {
	if !anomaly.HasSuggestion() {
		return service.ApplyResult{
			VehicleCode: anomaly.Record.VehicleCode,
			RowIndex:    anomaly.Record.RowIndex,
			Err:         common.ErrNoSuggestion,
		}
	}
	s := anomaly.Suggestion
	return e.apply(ctx, &anomaly.Record, s.Field, s.ProposedValue, s.Method, model.SourceAuto, appliedBy)
}

// ApplyManual applies an operator-entered value to one field of an
// anomalous record, bypassing the suggestion.
func (e *Engine) ApplyManual(ctx context.Context, anomaly model.Anomaly, field model.CorrectionField, newValue float64, appliedBy string) service.ApplyResult {
	return e.apply(ctx, &anomaly.Record, field, newValue, "", model.SourceManual, appliedBy)
}

// apply fans one correction out to every store, primary first, then writes
// the audit entry. A secondary-store failure is logged and reported but
// does not undo the primary update; an audit failure never undoes the
// correction itself.
func (e *Engine) apply(
	ctx context.Context,
	rec *model.UsageRecord,
	field model.CorrectionField,
	newValue float64,
	method model.CorrectionMethod,
	source model.CorrectionSource,
	appliedBy string,
) service.ApplyResult {
	result := service.ApplyResult{
		VehicleCode: rec.VehicleCode,
		RowIndex:    rec.RowIndex,
	}

	oldValue := rec.MeterPrevious
	if field == model.FieldCurrent {
		oldValue = rec.MeterCurrent
	}

	primary := e.updaters[0]
	if err := primary.ApplyFieldUpdate(ctx, rec.RowIndex, field, newValue); err != nil {
		result.Err = fmt.Errorf("%s: %w", primary.Name(), err)
		return result
	}

	for _, u := range e.updaters[1:] {
		if err := u.ApplyFieldUpdate(ctx, rec.RowIndex, field, newValue); err != nil {
			common.LogError(err, "secondary store update failed", common.Fields{
				"store":   u.Name(),
				"vehicle": rec.VehicleCode,
				"row":     rec.RowIndex,
			})
			if result.StoreErrors == nil {
				result.StoreErrors = make(map[string]error)
			}
			result.StoreErrors[u.Name()] = err
		}
	}

	entry := &model.CorrectionAuditEntry{
		VehicleCode:      rec.VehicleCode,
		RecordDate:       rec.Date,
		RecordTime:       rec.TimeOfDay,
		FieldCorrected:   field,
		OldValue:         oldValue,
		NewValue:         newValue,
		CorrectionMethod: method,
		Source:           source,
		AppliedBy:        appliedBy,
		AppliedAt:        time.Now().UTC(),
	}
	if err := e.audit.AppendAuditEntry(ctx, entry); err != nil {
		// The correction matters more than its own audit trail; an
		// operator can reconcile the gap from store state.
		common.LogError(err, "audit write failed after applied correction", common.Fields{
			"vehicle": rec.VehicleCode,
			"row":     rec.RowIndex,
		})
	}

	slog.Info("correction applied",
		"vehicle", rec.VehicleCode,
		"row", rec.RowIndex,
		"field", string(field),
		"old", oldValue,
		"new", newValue,
		"source", string(source))

	return result
}

// ApplyAll processes anomalies strictly in order, one at a time: each
// record's correction completes before the next is attempted. Individual
// failures are counted, never fatal; anomalies without a suggestion count
// as errors. The progress callback, when set, fires after every record.
func (e *Engine) ApplyAll(ctx context.Context, anomalies []model.Anomaly, appliedBy string, progress func(done, total int, res service.ApplyResult)) service.BatchResult {
	start := time.Now()
	batch := service.BatchResult{
		Results: make([]service.ApplyResult, 0, len(anomalies)),
	}

	for i, anomaly := range anomalies {
		res := e.ApplySuggestion(ctx, anomaly, appliedBy)
		batch.Results = append(batch.Results, res)
		if res.Err != nil {
			batch.Errors++
			common.LogError(res.Err, "batch correction failed", common.Fields{
				"vehicle": res.VehicleCode,
				"row":     res.RowIndex,
			})
		} else {
			batch.Fixed++
		}

		if progress != nil {
			progress(i+1, len(anomalies), res)
		}

		if e.opts.BatchDelay > 0 && i < len(anomalies)-1 {
			time.Sleep(e.opts.BatchDelay)
		}
	}

	batch.Duration = time.Since(start)
	return batch
}
