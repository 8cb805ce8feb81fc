package llm

import (
	"context"

	"github.com/atina-inc/atina-engine/pkg/models"
)

// MockExtractor is a configurable DocumentExtractor for tests.
// Set the function field to control behavior.
type MockExtractor struct {
	ExtractFunc func(ctx context.Context, image []byte, mediaType string) (*models.ExtractedReceipt, error)

	ExtractCalls int
}

var _ DocumentExtractor = (*MockExtractor)(nil)

// Extract implements DocumentExtractor.
func (m *MockExtractor) Extract(ctx context.Context, image []byte, mediaType string) (*models.ExtractedReceipt, error) {
	m.ExtractCalls++
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, image, mediaType)
	}
	return &models.ExtractedReceipt{}, nil
}

// MockDialogue is a configurable DialogueGenerator for tests. By default it
// echoes the situation kind, so assertions can verify WHICH situation the
// engine asked for without caring about prose.
type MockDialogue struct {
	RespondFunc  func(ctx context.Context, sit *models.SituationContext, history []models.DialogueTurn, userMessage string) (*DialogueResult, error)
	ClassifyFunc func(ctx context.Context, language, userMessage string, categories, costCenters []string) (*models.ManagementIntent, error)

	RespondCalls  int
	ClassifyCalls int
	// Situations records the situation kind of every Respond call, in order.
	Situations []models.SituationKind
}

var _ DialogueGenerator = (*MockDialogue)(nil)

// Respond implements DialogueGenerator.
func (m *MockDialogue) Respond(ctx context.Context, sit *models.SituationContext, history []models.DialogueTurn, userMessage string) (*DialogueResult, error) {
	m.RespondCalls++
	m.Situations = append(m.Situations, sit.Kind)
	if m.RespondFunc != nil {
		return m.RespondFunc(ctx, sit, history, userMessage)
	}
	return &DialogueResult{Text: "[" + string(sit.Kind) + "]"}, nil
}

// ClassifyManagement implements DialogueGenerator.
func (m *MockDialogue) ClassifyManagement(ctx context.Context, language, userMessage string, categories, costCenters []string) (*models.ManagementIntent, error) {
	m.ClassifyCalls++
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, language, userMessage, categories, costCenters)
	}
	return &models.ManagementIntent{Action: "unclear"}, nil
}
