package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/atina-inc/atina-engine/pkg/config"
	"github.com/atina-inc/atina-engine/pkg/models"
	"github.com/atina-inc/atina-engine/pkg/repositories"
)

// Monitor records processing events and flags users whose conversations look
// stuck: the same event repeating, or failures clustering in a short window.
// Detection only alerts (logs); it never interferes with the conversation.
type Monitor interface {
	// Record appends one event and runs the stuck/failure-rate checks.
	// Recording failures are logged, not returned; the event trail must
	// never break a conversation turn.
	Record(ctx context.Context, tenant *models.TenantConfig, userPhone, eventType string)
	// IsStuck reports whether the user's last events are all the same type.
	IsStuck(ctx context.Context, tenant *models.TenantConfig, userPhone string) bool
}

type monitor struct {
	receiptRepo repositories.ReceiptRepository
	cfg         config.MonitorConfig
	logger      *zap.Logger
}

// NewMonitor creates a Monitor.
func NewMonitor(receiptRepo repositories.ReceiptRepository, cfg config.MonitorConfig, logger *zap.Logger) Monitor {
	return &monitor{
		receiptRepo: receiptRepo,
		cfg:         cfg,
		logger:      logger.Named("monitor"),
	}
}

var _ Monitor = (*monitor)(nil)

func (m *monitor) Record(ctx context.Context, tenant *models.TenantConfig, userPhone, eventType string) {
	err := m.receiptRepo.RecordEvent(ctx, &models.ReceiptEvent{
		TenantID:  tenant.ID,
		UserPhone: userPhone,
		EventType: eventType,
	})
	if err != nil {
		m.logger.Error("Failed to record event",
			zap.String("event_type", eventType),
			zap.Error(err))
		return
	}

	m.checkFailureRate(ctx, tenant, userPhone, eventType)
	m.IsStuck(ctx, tenant, userPhone)
}

func (m *monitor) IsStuck(ctx context.Context, tenant *models.TenantConfig, userPhone string) bool {
	events, err := m.receiptRepo.LastEvents(ctx, tenant.ID, userPhone, m.cfg.ConsecutiveThreshold)
	if err != nil {
		m.logger.Error("Failed to read event trail", zap.Error(err))
		return false
	}
	if len(events) < m.cfg.ConsecutiveThreshold {
		return false
	}

	first := events[0].EventType
	for _, e := range events[1:] {
		if e.EventType != first {
			return false
		}
	}

	m.logger.Warn("Conversation looks stuck",
		zap.String("user", userPhone),
		zap.String("repeating_event", first),
		zap.Int("count", len(events)))
	return true
}

// checkFailureRate alerts when failures of one kind cluster inside the
// configured window.
func (m *monitor) checkFailureRate(ctx context.Context, tenant *models.TenantConfig, userPhone, eventType string) {
	switch eventType {
	case models.EventExtractionFailed, models.EventSaveFailed:
	default:
		return
	}

	since := time.Now().Add(-time.Duration(m.cfg.FailureWindowMinutes) * time.Minute)
	count, err := m.receiptRepo.CountEventsSince(ctx, tenant.ID, userPhone, eventType, since)
	if err != nil {
		m.logger.Error("Failed to count failures", zap.Error(err))
		return
	}

	if count >= m.cfg.FailureThreshold {
		m.logger.Warn("Failure rate threshold reached",
			zap.String("user", userPhone),
			zap.String("event_type", eventType),
			zap.Int("count", count),
			zap.Int("window_minutes", m.cfg.FailureWindowMinutes))
	}
}
