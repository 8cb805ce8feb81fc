package models

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationSession_AppendTurn_TrimsWindow(t *testing.T) {
	sess := NewConversationSession("+1", uuid.New(), "es")

	for i := 0; i < MaxHistoryTurns+5; i++ {
		sess.AppendTurn(RoleUser, fmt.Sprintf("turn %d", i))
	}

	require.Len(t, sess.History, MaxHistoryTurns)
	assert.Equal(t, "turn 5", sess.History[0].Content, "oldest turns dropped first")
	assert.Equal(t, fmt.Sprintf("turn %d", MaxHistoryTurns+4), sess.History[len(sess.History)-1].Content)
}

func TestConversationSession_RecordAsk(t *testing.T) {
	sess := NewConversationSession("+1", uuid.New(), "es")

	assert.Equal(t, 1, sess.RecordAsk(SlotCategory))
	assert.Equal(t, 2, sess.RecordAsk(SlotCategory))
	assert.Equal(t, 1, sess.RecordAsk(SlotCostCenter))
}

func TestConversationSession_ResetReceipt(t *testing.T) {
	sess := NewConversationSession("+1", uuid.New(), "en")
	sess.Phase = PhaseAwaitingConfirmation
	sess.Draft = &DraftRecord{MerchantName: "Home Depot"}
	sess.PendingImage = &PendingImage{Hash: "abc"}
	sess.PendingSkipSlot = SlotCostCenter
	sess.RecordAsk(SlotCategory)
	sess.AppendTurn(RoleUser, "hello")

	sess.ResetReceipt()

	assert.Equal(t, PhaseNew, sess.Phase)
	assert.Nil(t, sess.Draft)
	assert.Nil(t, sess.PendingImage)
	assert.Equal(t, SlotNone, sess.PendingSkipSlot)
	assert.Empty(t, sess.AskCounts)

	assert.Equal(t, "en", sess.Language, "language survives a reset")
	assert.Len(t, sess.History, 1, "history survives a reset")
}
