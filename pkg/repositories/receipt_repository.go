package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atina-inc/atina-engine/pkg/database"
	"github.com/atina-inc/atina-engine/pkg/models"
)

// ReceiptRepository provides tenant-scoped access to the receipt dedup ledger
// and the processing event trail.
type ReceiptRepository interface {
	// IsSaved reports whether a receipt with this content hash was already
	// written to the ledger.
	IsSaved(ctx context.Context, tenantID uuid.UUID, contentHash string) (bool, error)
	// MarkSaved records the content hash. Idempotent; a repeated mark is
	// not an error.
	MarkSaved(ctx context.Context, tenantID uuid.UUID, contentHash string) error

	RecordEvent(ctx context.Context, event *models.ReceiptEvent) error
	// LastEvents returns the newest events for a user, newest first.
	LastEvents(ctx context.Context, tenantID uuid.UUID, userPhone string, limit int) ([]*models.ReceiptEvent, error)
	// CountEventsSince counts events of one type for a user since a cutoff.
	CountEventsSince(ctx context.Context, tenantID uuid.UUID, userPhone, eventType string, since time.Time) (int, error)
}

type receiptRepository struct{}

// NewReceiptRepository creates a new ReceiptRepository.
func NewReceiptRepository() ReceiptRepository {
	return &receiptRepository{}
}

var _ ReceiptRepository = (*receiptRepository)(nil)

func (r *receiptRepository) IsSaved(ctx context.Context, tenantID uuid.UUID, contentHash string) (bool, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return false, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM saved_receipts
			WHERE tenant_id = $1 AND content_hash = $2
		)`

	var exists bool
	if err := scope.Conn.QueryRow(ctx, query, tenantID, contentHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check saved receipt: %w", err)
	}
	return exists, nil
}

func (r *receiptRepository) MarkSaved(ctx context.Context, tenantID uuid.UUID, contentHash string) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	query := `
		INSERT INTO saved_receipts (tenant_id, content_hash)
		VALUES ($1, $2)
		ON CONFLICT (tenant_id, content_hash) DO NOTHING`

	if _, err := scope.Conn.Exec(ctx, query, tenantID, contentHash); err != nil {
		return fmt.Errorf("failed to mark receipt saved: %w", err)
	}
	return nil
}

func (r *receiptRepository) RecordEvent(ctx context.Context, event *models.ReceiptEvent) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	query := `
		INSERT INTO receipt_events (tenant_id, user_phone, event_type, details)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := scope.Conn.QueryRow(ctx, query,
		event.TenantID, event.UserPhone, event.EventType, event.Details,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record receipt event: %w", err)
	}
	return nil
}

func (r *receiptRepository) LastEvents(ctx context.Context, tenantID uuid.UUID, userPhone string, limit int) ([]*models.ReceiptEvent, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, tenant_id, user_phone, event_type, details, created_at
		FROM receipt_events
		WHERE tenant_id = $1 AND user_phone = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	rows, err := scope.Conn.Query(ctx, query, tenantID, userPhone, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipt events: %w", err)
	}
	defer rows.Close()

	var events []*models.ReceiptEvent
	for rows.Next() {
		var e models.ReceiptEvent
		if err := rows.Scan(
			&e.ID, &e.TenantID, &e.UserPhone, &e.EventType, &e.Details, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan receipt event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (r *receiptRepository) CountEventsSince(ctx context.Context, tenantID uuid.UUID, userPhone, eventType string, since time.Time) (int, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT COUNT(*)
		FROM receipt_events
		WHERE tenant_id = $1 AND user_phone = $2 AND event_type = $3 AND created_at >= $4`

	var count int
	if err := scope.Conn.QueryRow(ctx, query, tenantID, userPhone, eventType, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count receipt events: %w", err)
	}
	return count, nil
}
