// Package ledger appends finalized expense records to the tenant's ledger.
package ledger

import (
	"context"

	"github.com/atina-inc/atina-engine/pkg/models"
)

// Sink is the append-only ledger target. Implementations must be safe for
// concurrent use; deduplication happens upstream.
type Sink interface {
	// Append writes one entry to the tenant's ledger. It returns
	// apperrors.ErrNoLedgerTarget when the tenant has no sheet configured.
	Append(ctx context.Context, tenant *models.TenantConfig, entry *models.LedgerEntry) error
}
