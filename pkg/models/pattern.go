package models

import (
	"time"

	"github.com/google/uuid"
)

// Pattern is a learned association from a merchant (and optionally item
// keywords) to a category/cost-center pair. At most one row exists per
// (tenant, merchant, category, cost_center); repeated learning increments
// frequency and refreshes recency.
type Pattern struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Merchant     string
	ItemKeywords []string
	Category     string
	CostCenter   string
	Frequency    int
	LastUsedAt   time.Time
}

// PatternMatch is a pattern annotated with its similarity to an incoming
// receipt, in [0,100].
type PatternMatch struct {
	Pattern    *Pattern
	Similarity int
}

// PatternSuggestion is the best match surfaced to the dialogue generator
// for one-tap confirmation.
type PatternSuggestion struct {
	Category   string
	CostCenter string
	Similarity int
	Frequency  int
}
