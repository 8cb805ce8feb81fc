package testhelpers

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/atina-inc/atina-engine/pkg/database"
	"github.com/atina-inc/atina-engine/pkg/models"
)

// CreateTestTenant inserts a fresh tenant with a unique name and returns its
// config. The tenant is not cleaned up; the shared container is discarded at
// the end of the run.
func CreateTestTenant(t *testing.T, db *database.DB) *models.TenantConfig {
	t.Helper()

	tenant := &models.TenantConfig{
		Name:               fmt.Sprintf("test-tenant-%s", uuid.NewString()),
		DefaultLanguage:    "es",
		DefaultCurrency:    "USD",
		CostCenterRequired: true,
		CostCenterLabel:    "property/unit",
		SpreadsheetID:      "test-spreadsheet",
	}

	err := db.QueryRow(context.Background(), `
		INSERT INTO tenants (name, default_language, default_currency,
		                     cost_center_required, cost_center_label, spreadsheet_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		tenant.Name, tenant.DefaultLanguage, tenant.DefaultCurrency,
		tenant.CostCenterRequired, tenant.CostCenterLabel, tenant.SpreadsheetID,
	).Scan(&tenant.ID, &tenant.CreatedAt)
	if err != nil {
		t.Fatalf("Failed to create test tenant: %v", err)
	}

	return tenant
}

// ScopedContext returns a context carrying a tenant-scoped connection. The
// scope is released via t.Cleanup.
func ScopedContext(t *testing.T, db *database.DB, tenantID uuid.UUID) context.Context {
	t.Helper()

	scope, err := db.WithTenant(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("Failed to acquire tenant scope: %v", err)
	}
	t.Cleanup(scope.Close)

	return database.SetTenantScope(context.Background(), scope)
}
