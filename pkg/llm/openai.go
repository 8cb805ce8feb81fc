package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/atina-inc/atina-engine/pkg/apperrors"
	"github.com/atina-inc/atina-engine/pkg/models"
)

// openaiClient implements DocumentExtractor and DialogueGenerator against
// any OpenAI-compatible chat completions endpoint.
type openaiClient struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewOpenAIClient creates an OpenAI-compatible provider. baseURL may point at
// any compatible endpoint.
func NewOpenAIClient(apiKey, baseURL, model string, maxTokens int, logger *zap.Logger) *openaiClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openaiClient{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.Named("openai"),
	}
}

var (
	_ DocumentExtractor = (*openaiClient)(nil)
	_ DialogueGenerator = (*openaiClient)(nil)
)

func (c *openaiClient) Extract(ctx context.Context, image []byte, mediaType string) (*models.ExtractedReceipt, error) {
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(image))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
					{Type: openai.ChatMessagePartTypeText, Text: extractionPrompt},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrExtraction, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", apperrors.ErrExtraction)
	}

	text := resp.Choices[0].Message.Content
	receipt, err := ParseJSONResponse[models.ExtractedReceipt](text)
	if err != nil {
		c.logger.Warn("Unparseable extraction response", zap.String("response", text))
		return nil, fmt.Errorf("%w: unparseable response: %w", apperrors.ErrExtraction, err)
	}
	return &receipt, nil
}

func (c *openaiClient) Respond(ctx context.Context, sit *models.SituationContext, history []models.DialogueTurn, userMessage string) (*DialogueResult, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: BuildDialoguePrompt(sit)},
	}
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	if userMessage != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userMessage})
	}
	if messages[len(messages)-1].Role != openai.ChatMessageRoleUser {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: "(continue)"})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  messages,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrDialogue, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", apperrors.ErrDialogue)
	}

	return parseDialogue(resp.Choices[0].Message.Content), nil
}

func (c *openaiClient) ClassifyManagement(ctx context.Context, language, userMessage string, categories, costCenters []string) (*models.ManagementIntent, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: BuildManagementPrompt(language, categories, costCenters)},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: management classification: %w", apperrors.ErrDialogue, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: management classification returned no choices", apperrors.ErrDialogue)
	}

	intent, err := ParseJSONResponse[models.ManagementIntent](resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable management intent: %w", apperrors.ErrDialogue, err)
	}
	return &intent, nil
}
