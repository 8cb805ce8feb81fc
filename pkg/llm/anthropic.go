package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/atina-inc/atina-engine/pkg/apperrors"
	"github.com/atina-inc/atina-engine/pkg/models"
)

// anthropicClient implements both DocumentExtractor and DialogueGenerator on
// the Anthropic Messages API.
type anthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewAnthropicClient creates an Anthropic-backed provider.
func NewAnthropicClient(apiKey, model string, maxTokens int, logger *zap.Logger) *anthropicClient {
	return &anthropicClient{
		client:    anthropic.NewClient(apiKey),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.Named("anthropic"),
	}
}

var (
	_ DocumentExtractor = (*anthropicClient)(nil)
	_ DialogueGenerator = (*anthropicClient)(nil)
)

func (c *anthropicClient) Extract(ctx context.Context, image []byte, mediaType string) (*models.ExtractedReceipt, error) {
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	prompt := extractionPrompt

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					{
						Type: "image",
						Source: &anthropic.MessageContentSource{
							Type:      "base64",
							MediaType: mediaType,
							Data:      base64.StdEncoding.EncodeToString(image),
						},
					},
					{Type: "text", Text: &prompt},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrExtraction, err)
	}

	text := messageText(&resp)
	receipt, err := ParseJSONResponse[models.ExtractedReceipt](text)
	if err != nil {
		c.logger.Warn("Unparseable extraction response", zap.String("response", text))
		return nil, fmt.Errorf("%w: unparseable response: %w", apperrors.ErrExtraction, err)
	}
	return &receipt, nil
}

func (c *anthropicClient) Respond(ctx context.Context, sit *models.SituationContext, history []models.DialogueTurn, userMessage string) (*DialogueResult, error) {
	messages := dialogueMessages(history, userMessage)

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    BuildDialoguePrompt(sit),
		Messages:  messages,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrDialogue, err)
	}

	return parseDialogue(messageText(&resp)), nil
}

func (c *anthropicClient) ClassifyManagement(ctx context.Context, language, userMessage string, categories, costCenters []string) (*models.ManagementIntent, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    BuildManagementPrompt(language, categories, costCenters),
		Messages: []anthropic.Message{
			anthropicTextMessage(anthropic.RoleUser, userMessage),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: management classification: %w", apperrors.ErrDialogue, err)
	}

	intent, err := ParseJSONResponse[models.ManagementIntent](messageText(&resp))
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable management intent: %w", apperrors.ErrDialogue, err)
	}
	return &intent, nil
}

// dialogueMessages converts session history to API messages, appending the
// current user utterance. Engine-initiated turns (no user text, no history)
// still need one user message for the API to respond to.
func dialogueMessages(history []models.DialogueTurn, userMessage string) []anthropic.Message {
	messages := make([]anthropic.Message, 0, len(history)+1)
	for _, turn := range history {
		role := anthropic.RoleUser
		if turn.Role == models.RoleAssistant {
			role = anthropic.RoleAssistant
		}
		messages = append(messages, anthropicTextMessage(role, turn.Content))
	}
	if userMessage != "" {
		messages = append(messages, anthropicTextMessage(anthropic.RoleUser, userMessage))
	}
	if len(messages) == 0 || messages[len(messages)-1].Role != anthropic.RoleUser {
		messages = append(messages, anthropicTextMessage(anthropic.RoleUser, "(continue)"))
	}
	return messages
}

func anthropicTextMessage(role anthropic.ChatRole, text string) anthropic.Message {
	return anthropic.Message{
		Role:    role,
		Content: []anthropic.MessageContent{{Type: "text", Text: &text}},
	}
}

func messageText(resp *anthropic.MessagesResponse) string {
	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			parts = append(parts, *block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// parseDialogue splits a raw model response into user-facing prose and the
// optional structured-fields block.
func parseDialogue(raw string) *DialogueResult {
	result := &DialogueResult{Text: StripJSON(raw)}

	if fields, err := ParseJSONResponse[models.StructuredFields](raw); err == nil && !fields.Empty() {
		result.Fields = &fields
	}
	if result.Text == "" {
		// The model answered with only a JSON block; keep the raw text so
		// the user never receives an empty message.
		result.Text = strings.TrimSpace(raw)
	}
	return result
}
