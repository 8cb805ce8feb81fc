// Package whatsapp sends outbound messages and fetches inbound media through
// the Kapso WhatsApp API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atina-inc/atina-engine/pkg/config"
)

// maxMediaBytes bounds a downloaded receipt image.
const maxMediaBytes = 16 << 20

// Sender delivers outbound text messages to a user.
type Sender interface {
	SendText(ctx context.Context, toNumber, text string) error
}

// MediaFetcher downloads inbound media referenced by a webhook payload.
type MediaFetcher interface {
	// FetchMedia returns the media bytes and their content type.
	FetchMedia(ctx context.Context, mediaURL string) ([]byte, string, error)
}

// Client is the Kapso-backed implementation of Sender and MediaFetcher.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a WhatsApp client.
func NewClient(cfg *config.WhatsAppConfig, logger *zap.Logger) *Client {
	return &Client{
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.Named("whatsapp"),
	}
}

var (
	_ Sender       = (*Client)(nil)
	_ MediaFetcher = (*Client)(nil)
)

type textPayload struct {
	Body string `json:"body"`
}

type messagePayload struct {
	Phone       string      `json:"phone"`
	MessageType string      `json:"message_type"`
	Text        textPayload `json:"text"`
}

type sendRequest struct {
	WhatsAppMessage messagePayload `json:"whatsapp_message"`
}

// SendText delivers one outbound text message.
func (c *Client) SendText(ctx context.Context, toNumber, text string) error {
	body, err := json.Marshal(sendRequest{
		WhatsAppMessage: messagePayload{
			Phone:       toNumber,
			MessageType: "text",
			Text:        textPayload{Body: text},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiURL+"/whatsapp_messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Error("Message send rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", respBody))
		return fmt.Errorf("message send failed with status %d", resp.StatusCode)
	}
	return nil
}

// FetchMedia downloads an inbound media attachment.
func (c *Client) FetchMedia(ctx context.Context, mediaURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build media request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media fetch failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read media body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
