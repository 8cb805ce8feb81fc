package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atina-inc/atina-engine/pkg/database"
	"github.com/atina-inc/atina-engine/pkg/models"
)

// PatternRepository provides tenant-scoped access to learned
// merchant-to-assignment patterns.
type PatternRepository interface {
	// FindByMerchant returns patterns for a normalized merchant name, most
	// frequent first with recency as tiebreaker.
	FindByMerchant(ctx context.Context, tenantID uuid.UUID, merchant string) ([]*models.Pattern, error)
	// Learn upserts the (merchant, category, cost_center) assignment. An
	// existing row gets frequency+1, refreshed keywords and recency; a new
	// row starts at frequency 1.
	Learn(ctx context.Context, pattern *models.Pattern) error
}

type patternRepository struct{}

// NewPatternRepository creates a new PatternRepository.
func NewPatternRepository() PatternRepository {
	return &patternRepository{}
}

var _ PatternRepository = (*patternRepository)(nil)

func (r *patternRepository) FindByMerchant(ctx context.Context, tenantID uuid.UUID, merchant string) ([]*models.Pattern, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, tenant_id, merchant, item_keywords, category, cost_center,
		       frequency, last_used_at
		FROM patterns
		WHERE tenant_id = $1 AND merchant = $2
		ORDER BY frequency DESC, last_used_at DESC
		LIMIT 10`

	rows, err := scope.Conn.Query(ctx, query, tenantID, merchant)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	var patterns []*models.Pattern
	for rows.Next() {
		var p models.Pattern
		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.Merchant, &p.ItemKeywords, &p.Category,
			&p.CostCenter, &p.Frequency, &p.LastUsedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		patterns = append(patterns, &p)
	}
	return patterns, rows.Err()
}

func (r *patternRepository) Learn(ctx context.Context, pattern *models.Pattern) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	if pattern.ID == uuid.Nil {
		pattern.ID = uuid.New()
	}
	now := time.Now()

	// The unique constraint makes this increment atomic under concurrent
	// saves for the same assignment.
	query := `
		INSERT INTO patterns (id, tenant_id, merchant, item_keywords, category,
		                      cost_center, frequency, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7)
		ON CONFLICT (tenant_id, merchant, category, cost_center)
		DO UPDATE SET
			frequency = patterns.frequency + 1,
			item_keywords = EXCLUDED.item_keywords,
			last_used_at = EXCLUDED.last_used_at
		RETURNING id, frequency`

	err := scope.Conn.QueryRow(ctx, query,
		pattern.ID, pattern.TenantID, pattern.Merchant, pattern.ItemKeywords,
		pattern.Category, pattern.CostCenter, now,
	).Scan(&pattern.ID, &pattern.Frequency)
	if err != nil {
		return fmt.Errorf("failed to learn pattern: %w", err)
	}
	pattern.LastUsedAt = now
	return nil
}
