package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atina-inc/atina-engine/pkg/config"
	"github.com/atina-inc/atina-engine/pkg/models"
	"github.com/atina-inc/atina-engine/pkg/services"
	"github.com/atina-inc/atina-engine/pkg/whatsapp"
)

// ScopeProvider opens a tenant-scoped context for the duration of one
// inbound event.
type ScopeProvider interface {
	WithTenantScope(ctx context.Context, tenantID uuid.UUID) (context.Context, func(), error)
}

// WebhookHandler receives Kapso WhatsApp webhooks: GET for subscription
// verification, POST for inbound messages.
type WebhookHandler struct {
	cfg      *config.WebhookConfig
	resolver services.TenantResolver
	scopes   ScopeProvider
	engine   services.ConversationEngine
	media    whatsapp.MediaFetcher
	logger   *zap.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(
	cfg *config.WebhookConfig,
	resolver services.TenantResolver,
	scopes ScopeProvider,
	engine services.ConversationEngine,
	media whatsapp.MediaFetcher,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		cfg:      cfg,
		resolver: resolver,
		scopes:   scopes,
		engine:   engine,
		media:    media,
		logger:   logger.Named("webhook"),
	}
}

// RegisterRoutes registers the webhook routes on the given mux.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /webhook", h.Verify)
	mux.HandleFunc("POST /webhook", h.Receive)
}

// webhookPayload is the Kapso inbound event envelope. Events without a
// message (delivery receipts, status updates) are acknowledged and ignored.
type webhookPayload struct {
	Message *inboundMessage `json:"message"`
}

type inboundMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Kapso *struct {
		MediaURL string `json:"media_url"`
	} `json:"kapso"`
}

// Verify handles GET /webhook subscription verification: the challenge is
// echoed back when the verify token matches.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if token == "" || token != h.cfg.VerifyToken {
		h.logger.Warn("Webhook verification rejected")
		http.Error(w, "Invalid verify token", http.StatusForbidden)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// Receive handles POST /webhook inbound messages. The whole turn runs
// synchronously; per-sender serialization inside the engine keeps concurrent
// deliveries ordered.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_payload", "malformed webhook body")
		return
	}

	event, ok := toInboundEvent(payload.Message)
	if !ok {
		// Nothing actionable; acknowledge so the provider stops retrying.
		_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "note": "no message in webhook"})
		return
	}

	if err := h.process(r.Context(), event); err != nil {
		h.logger.Error("Webhook processing failed",
			zap.String("sender", event.SenderID),
			zap.String("kind", string(event.Kind)),
			zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "processing_failed", "failed to process message")
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// toInboundEvent reduces the wire message to the event the engine consumes.
func toInboundEvent(msg *inboundMessage) (*models.InboundEvent, bool) {
	if msg == nil || msg.From == "" {
		return nil, false
	}

	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return nil, false
		}
		return &models.InboundEvent{
			SenderID: msg.From,
			Kind:     models.EventKindText,
			Text:     msg.Text.Body,
		}, true

	case "image":
		if msg.Kapso == nil || msg.Kapso.MediaURL == "" {
			return nil, false
		}
		return &models.InboundEvent{
			SenderID: msg.From,
			Kind:     models.EventKindImage,
			MediaURL: msg.Kapso.MediaURL,
		}, true

	default:
		return nil, false
	}
}

// process resolves the sender's tenant, opens a tenant scope, refreshes the
// taxonomy snapshot and dispatches to the conversation engine.
func (h *WebhookHandler) process(ctx context.Context, event *models.InboundEvent) error {
	user, tenant, err := h.resolver.Resolve(ctx, event.SenderID)
	if err != nil {
		return err
	}

	scopedCtx, cleanup, err := h.scopes.WithTenantScope(ctx, tenant.ID)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := h.resolver.Refresh(scopedCtx, tenant); err != nil {
		return err
	}

	switch event.Kind {
	case models.EventKindImage:
		image, mediaType, err := h.media.FetchMedia(scopedCtx, event.MediaURL)
		if err != nil {
			return err
		}
		return h.engine.HandleImage(scopedCtx, tenant, user, image, mediaType)
	default:
		return h.engine.HandleText(scopedCtx, tenant, user, event.Text)
	}
}
