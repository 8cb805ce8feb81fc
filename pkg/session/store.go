// Package session stores per-user conversation state, either in memory or in
// Redis when configured. State is volatile by design; losing it resets the
// conversation but never loses ledger data.
package session

import (
	"context"

	"github.com/atina-inc/atina-engine/pkg/models"
)

// Store persists conversation sessions keyed by sender id.
type Store interface {
	// Get returns the session for a sender, or apperrors.ErrSessionNotFound.
	Get(ctx context.Context, senderID string) (*models.ConversationSession, error)
	Put(ctx context.Context, session *models.ConversationSession) error
	// Delete removes one sender's session. Missing sessions are not an error.
	Delete(ctx context.Context, senderID string) error
	// Clear removes all sessions.
	Clear(ctx context.Context) error
}
