// Package llm provides the AI provider clients behind receipt extraction and
// conversational dialogue.
package llm

import (
	"context"

	"github.com/atina-inc/atina-engine/pkg/models"
)

// DocumentExtractor turns a receipt image into a structured draft.
type DocumentExtractor interface {
	// Extract reads a receipt image and returns the structured fields it
	// could recognize. Unreadable fields come back as zero values; a fully
	// unreadable image returns an error.
	Extract(ctx context.Context, image []byte, mediaType string) (*models.ExtractedReceipt, error)
}

// DialogueResult is one generated assistant turn: the user-facing text plus
// any machine-readable fields the model attached.
type DialogueResult struct {
	Text   string
	Fields *models.StructuredFields
}

// DialogueGenerator produces all user-facing conversational prose. The
// engine decides WHAT to say via the situation context; the generator
// decides HOW to say it.
type DialogueGenerator interface {
	// Respond generates the assistant turn for a situation. userMessage is
	// empty for engine-initiated turns (e.g. after extraction).
	Respond(ctx context.Context, situation *models.SituationContext, history []models.DialogueTurn, userMessage string) (*DialogueResult, error)

	// ClassifyManagement maps a management-mode utterance to a taxonomy
	// intent.
	ClassifyManagement(ctx context.Context, language, userMessage string, categories, costCenters []string) (*models.ManagementIntent, error)
}
