package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TenantConfig is the per-request snapshot of a tenant (company) and its
// taxonomies. It is loaded fresh for every inbound event so that taxonomy
// changes made through the management flow are visible on the next turn.
type TenantConfig struct {
	ID                 uuid.UUID
	Name               string
	DefaultLanguage    string
	DefaultCurrency    string
	CostCenterRequired bool
	// CostCenterLabel is the user-facing term for the cost-center slot,
	// e.g. "property/unit" or "job/project". The internal field name must
	// never appear in user-facing text.
	CostCenterLabel string
	// SpreadsheetID identifies the ledger sink target. Empty means the
	// tenant has no ledger configured.
	SpreadsheetID string
	CreatedAt     time.Time

	// Taxonomy snapshots, refreshed on every resolve.
	Categories  []string
	CostCenters []string
}

// CostCenterTerm returns the first segment of the cost-center label, used in
// phrasing ("property", "job", ...).
func (t *TenantConfig) CostCenterTerm() string {
	term, _, _ := strings.Cut(t.CostCenterLabel, "/")
	if term == "" {
		return "cost center"
	}
	return term
}

// HasLedgerTarget reports whether the tenant has a ledger sink configured.
func (t *TenantConfig) HasLedgerTarget() bool {
	return t.SpreadsheetID != ""
}

// HasCategory reports whether name is in the category taxonomy,
// case-insensitively.
func (t *TenantConfig) HasCategory(name string) bool {
	return containsFold(t.Categories, name)
}

// HasCostCenter reports whether name is in the cost-center taxonomy,
// case-insensitively.
func (t *TenantConfig) HasCostCenter(name string) bool {
	return containsFold(t.CostCenters, name)
}

func containsFold(values []string, name string) bool {
	for _, v := range values {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

// User is a WhatsApp identity bound to a tenant.
type User struct {
	ID          uuid.UUID
	PhoneNumber string
	DisplayName string
	TenantID    uuid.UUID
	CreatedAt   time.Time
}
