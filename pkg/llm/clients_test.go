package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atina-inc/atina-engine/pkg/apperrors"
	"github.com/atina-inc/atina-engine/pkg/models"
)

// canceledCtx forces the underlying HTTP client to fail before any network
// traffic, so these tests exercise only the error-wrapping contract.
func canceledCtx() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestAnthropicClient_ErrorsCarrySentinels(t *testing.T) {
	c := NewAnthropicClient("test-key", "claude-test", 1024, zap.NewNop())

	_, err := c.Extract(canceledCtx(), []byte{0x1}, "image/png")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrExtraction)

	_, err = c.Respond(canceledCtx(), &models.SituationContext{Kind: models.SituationGreeting}, nil, "hola")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDialogue)

	_, err = c.ClassifyManagement(canceledCtx(), "es", "agrega jardinería", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDialogue)
}

func TestOpenAIClient_ErrorsCarrySentinels(t *testing.T) {
	c := NewOpenAIClient("test-key", "", "gpt-test", 1024, zap.NewNop())

	_, err := c.Extract(canceledCtx(), []byte{0x1}, "image/png")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrExtraction)

	_, err = c.Respond(canceledCtx(), &models.SituationContext{Kind: models.SituationGreeting}, nil, "hola")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDialogue)

	_, err = c.ClassifyManagement(canceledCtx(), "es", "agrega jardinería", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDialogue)
}
