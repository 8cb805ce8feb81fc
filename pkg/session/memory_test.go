package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atina-inc/atina-engine/pkg/apperrors"
	"github.com/atina-inc/atina-engine/pkg/models"
)

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "+5215550001111")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestMemoryStore_PutGetRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	session := models.NewConversationSession("+5215550001111", uuid.New(), "es")
	session.Phase = models.PhaseCollectingInfo
	session.Draft = &models.DraftRecord{MerchantName: "Home Depot", TotalAmount: 125.50}
	session.AppendTurn(models.RoleUser, "hola")
	session.RecordAsk(models.SlotCategory)

	require.NoError(t, store.Put(ctx, session))

	got, err := store.Get(ctx, "+5215550001111")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCollectingInfo, got.Phase)
	assert.Equal(t, "Home Depot", got.Draft.MerchantName)
	assert.Equal(t, 1, got.AskCounts[models.SlotCategory])
	require.Len(t, got.History, 1)
	assert.Equal(t, "hola", got.History[0].Content)
}

func TestMemoryStore_PutCopiesState(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	session := models.NewConversationSession("+5215550001111", uuid.New(), "es")
	require.NoError(t, store.Put(ctx, session))

	// Mutating the original after Put must not affect the stored copy.
	session.Phase = models.PhaseFixingData

	got, err := store.Get(ctx, "+5215550001111")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseNew, got.Phase)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, models.NewConversationSession("a", uuid.New(), "es")))
	require.NoError(t, store.Delete(ctx, "a"))

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	// Deleting a missing session is fine.
	assert.NoError(t, store.Delete(ctx, "never-existed"))
}

func TestMemoryStore_Clear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, models.NewConversationSession("a", uuid.New(), "es")))
	require.NoError(t, store.Put(ctx, models.NewConversationSession("b", uuid.New(), "en")))
	require.NoError(t, store.Clear(ctx))

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}
