package models

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the receipt-flow state of a conversation.
type Phase string

const (
	PhaseNew                   Phase = "new"
	PhaseAwaitingDuplicate     Phase = "awaiting_duplicate_confirmation"
	PhaseCollectingBeneficiary Phase = "collecting_beneficiary"
	PhaseCollectingInfo        Phase = "collecting_info"
	PhaseAwaitingConfirmation  Phase = "awaiting_confirmation"
	PhaseFixingData            Phase = "fixing_data"
)

// MaxHistoryTurns bounds the dialogue history window passed to the dialogue
// generator.
const MaxHistoryTurns = 10

// Dialogue roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DialogueTurn is one entry of the bounded conversation history.
type DialogueTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PendingImage is a stashed receipt image awaiting the user's duplicate
// confirmation.
type PendingImage struct {
	Data      []byte `json:"data"`
	MediaType string `json:"media_type"`
	Hash      string `json:"hash"`
}

// ManagementAction is a taxonomy mutation awaiting explicit confirmation.
type ManagementAction struct {
	Action string `json:"action"` // "add" or "delete"
	Kind   string `json:"kind"`   // "category" or "cost_center"
	Name   string `json:"name"`
}

// ConversationSession is the per-user volatile state. It survives across
// receipts and is only removed by the admin cache operations.
type ConversationSession struct {
	SenderID string    `json:"sender_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Phase    Phase     `json:"phase"`
	// Managing is the orthogonal taxonomy-management mode, entered and
	// exited by explicit command independent of the receipt flow.
	Managing bool   `json:"managing"`
	Language string `json:"language"`

	Draft        *DraftRecord  `json:"draft,omitempty"`
	PendingImage *PendingImage `json:"pending_image,omitempty"`
	// PendingSkipSlot is set while the machine waits for the explicit
	// yes/no that authorizes filling a slot with its sentinel value.
	PendingSkipSlot   Slot              `json:"pending_skip_slot,omitempty"`
	PendingManagement *ManagementAction `json:"pending_management,omitempty"`

	History []DialogueTurn `json:"history,omitempty"`
	// AskCounts tracks how many times each slot has been prompted, so the
	// machine can vary phrasing instead of re-asking identically.
	AskCounts map[Slot]int `json:"ask_counts,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversationSession creates an idle session for a sender.
func NewConversationSession(senderID string, tenantID uuid.UUID, language string) *ConversationSession {
	return &ConversationSession{
		SenderID:  senderID,
		TenantID:  tenantID,
		Phase:     PhaseNew,
		Language:  language,
		AskCounts: make(map[Slot]int),
		UpdatedAt: time.Now(),
	}
}

// AppendTurn records a dialogue turn, trimming the window to MaxHistoryTurns.
func (s *ConversationSession) AppendTurn(role, content string) {
	s.History = append(s.History, DialogueTurn{Role: role, Content: content})
	if len(s.History) > MaxHistoryTurns {
		s.History = s.History[len(s.History)-MaxHistoryTurns:]
	}
}

// RecordAsk increments the prompt counter for a slot and returns the new
// count.
func (s *ConversationSession) RecordAsk(slot Slot) int {
	if s.AskCounts == nil {
		s.AskCounts = make(map[Slot]int)
	}
	s.AskCounts[slot]++
	return s.AskCounts[slot]
}

// ResetReceipt clears all receipt-flow state after a successful ledger write
// or an explicit cancellation. The session itself (language, history)
// survives for the next receipt.
func (s *ConversationSession) ResetReceipt() {
	s.Phase = PhaseNew
	s.Draft = nil
	s.PendingImage = nil
	s.PendingSkipSlot = SlotNone
	s.AskCounts = make(map[Slot]int)
}
