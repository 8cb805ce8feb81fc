package models

import (
	"time"

	"github.com/google/uuid"
)

// EventKind discriminates inbound WhatsApp events.
type EventKind string

const (
	EventKindImage EventKind = "image"
	EventKindText  EventKind = "text"
)

// InboundEvent is one incoming WhatsApp message, already reduced to the
// fields the conversation engine needs.
type InboundEvent struct {
	SenderID string
	Kind     EventKind
	Text     string
	MediaURL string
}

// Receipt-event types recorded for the consecutive-event monitor.
const (
	EventReceiptReceived   = "receipt_received"
	EventDuplicateDetected = "duplicate_detected"
	EventDuplicateDropped  = "duplicate_dropped"
	EventExtractionFailed  = "extraction_failed"
	EventSlotPrompted      = "slot_prompted"
	EventReceiptSaved      = "receipt_saved"
	EventSaveFailed        = "save_failed"
)

// ReceiptEvent is one row of the per-user event trail used to flag stuck
// conversations.
type ReceiptEvent struct {
	ID        int64
	TenantID  uuid.UUID
	UserPhone string
	EventType string
	Details   string
	CreatedAt time.Time
}

// LedgerEntry is the append-only row written to the ledger sink. Duplicate
// detection is the caller's responsibility; the sink never sees the content
// hash.
type LedgerEntry struct {
	Timestamp     time.Time
	Merchant      string
	Date          string
	Amount        float64
	Category      string
	CostCenter    string
	PaymentMethod string
	LineItems     string
	SubmittedBy   string
}

// NewLedgerEntry builds the ledger row for a finalized draft.
func NewLedgerEntry(draft *DraftRecord, submittedBy string) *LedgerEntry {
	return &LedgerEntry{
		Timestamp:     time.Now(),
		Merchant:      draft.MerchantName,
		Date:          draft.TransactionDate,
		Amount:        draft.TotalAmount,
		Category:      draft.Category,
		CostCenter:    draft.CostCenter,
		PaymentMethod: draft.PaymentMethod,
		LineItems:     draft.LineItemsSerialized(),
		SubmittedBy:   submittedBy,
	}
}
