package models

import (
	"fmt"
	"strings"
)

// Sentinel values a slot may hold after an explicitly confirmed skip. They
// are never set from a bare "skip" utterance.
const (
	SentinelCategory   = "Uncategorized"
	SentinelCostCenter = "Unassigned"
)

// Slot identifies one of the required classification slots on a draft.
type Slot string

const (
	SlotNone       Slot = ""
	SlotCategory   Slot = "category"
	SlotCostCenter Slot = "cost_center"
)

// LineItem is a single line of a receipt.
type LineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// DraftRecord is the in-flight structured representation of one receipt
// being completed through conversation. It lives in volatile session state
// and is only persisted to the ledger once finalized.
type DraftRecord struct {
	MerchantName    string     `json:"merchant_name"`
	TransactionDate string     `json:"transaction_date"`
	TotalAmount     float64    `json:"total_amount"`
	PaymentMethod   string     `json:"payment_method"`
	LineItems       []LineItem `json:"line_items"`
	Category        string     `json:"category"`
	CostCenter      string     `json:"cost_center"`
	// ContentHash is the SHA-256 digest of the source image bytes. It is
	// set before any slot-filling begins and drives deduplication.
	ContentHash    string `json:"content_hash"`
	IsBankTransfer bool   `json:"is_bank_transfer"`
}

// MissingSlot returns the next required slot to fill, category first. When
// the tenant does not require a cost center that slot is waived entirely.
func (d *DraftRecord) MissingSlot(costCenterRequired bool) Slot {
	if d.Category == "" {
		return SlotCategory
	}
	if costCenterRequired && d.CostCenter == "" {
		return SlotCostCenter
	}
	return SlotNone
}

// IsComplete reports whether both required slots are satisfied.
func (d *DraftRecord) IsComplete(costCenterRequired bool) bool {
	return d.MissingSlot(costCenterRequired) == SlotNone
}

// ValidateForLedger checks the invariants that must hold before a draft may
// be written to the ledger.
func (d *DraftRecord) ValidateForLedger(costCenterRequired bool) error {
	if d.ContentHash == "" {
		return fmt.Errorf("draft has no content hash")
	}
	if d.Category == "" {
		return fmt.Errorf("draft has no category")
	}
	if costCenterRequired && d.CostCenter == "" {
		return fmt.Errorf("draft has no cost center")
	}
	return nil
}

// HasSentinelSlots reports whether either slot holds a skip sentinel.
// Sentinel-bearing drafts are filed but never learned as patterns.
func (d *DraftRecord) HasSentinelSlots() bool {
	return d.Category == SentinelCategory || d.CostCenter == SentinelCostCenter
}

// LineItemsSerialized renders line items as a single ledger cell value.
func (d *DraftRecord) LineItemsSerialized() string {
	if len(d.LineItems) == 0 {
		return ""
	}
	parts := make([]string, 0, len(d.LineItems))
	for _, item := range d.LineItems {
		parts = append(parts, fmt.Sprintf("%s: $%.2f", item.Description, item.Amount))
	}
	return strings.Join(parts, "; ")
}
