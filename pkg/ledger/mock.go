package ledger

import (
	"context"
	"sync"

	"github.com/atina-inc/atina-engine/pkg/apperrors"
	"github.com/atina-inc/atina-engine/pkg/models"
)

// MockSink records appended entries for test assertions.
type MockSink struct {
	mu      sync.Mutex
	Entries []*models.LedgerEntry
	// AppendErr, when set, is returned by every Append call.
	AppendErr error
	// FailTimes makes the first N appends fail with AppendErr, then succeed.
	FailTimes int

	AppendCalls int
}

var _ Sink = (*MockSink)(nil)

// Append implements Sink.
func (m *MockSink) Append(ctx context.Context, tenant *models.TenantConfig, entry *models.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AppendCalls++
	if !tenant.HasLedgerTarget() {
		return apperrors.ErrNoLedgerTarget
	}
	if m.AppendErr != nil {
		if m.FailTimes == 0 {
			return m.AppendErr
		}
		if m.AppendCalls <= m.FailTimes {
			return m.AppendErr
		}
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

// Appended returns a snapshot of recorded entries.
func (m *MockSink) Appended() []*models.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.LedgerEntry, len(m.Entries))
	copy(out, m.Entries)
	return out
}
