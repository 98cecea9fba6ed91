package engine

import (
	"context"
	"sync"

	"github.com/frotaops/meterguard/internal/model"
)

// mockSource serves a fixed snapshot.
type mockSource struct {
	err     error
	records []model.UsageRecord
}

func (m *mockSource) GetUsageRecords(_ context.Context) ([]model.UsageRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

type updateCall struct {
	rowIndex string
	field    model.CorrectionField
	newValue float64
}

// mockUpdater records field updates and fails on demand per row.
type mockUpdater struct {
	failOn map[string]error
	name   string
	calls  []updateCall
	mu     sync.Mutex
}

func newMockUpdater(name string) *mockUpdater {
	return &mockUpdater{name: name, failOn: make(map[string]error)}
}

func (m *mockUpdater) Name() string { return m.name }

func (m *mockUpdater) ApplyFieldUpdate(_ context.Context, rowIndex string, field model.CorrectionField, newValue float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failOn[rowIndex]; ok {
		return err
	}
	m.calls = append(m.calls, updateCall{rowIndex: rowIndex, field: field, newValue: newValue})
	return nil
}

// mockAudit collects appended entries.
type mockAudit struct {
	err     error
	entries []model.CorrectionAuditEntry
	mu      sync.Mutex
}

func (m *mockAudit) AppendAuditEntry(_ context.Context, entry *model.CorrectionAuditEntry) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}
