package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atina-inc/atina-engine/pkg/config"
)

func TestClient_SendText(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(&config.WhatsAppConfig{APIURL: server.URL, APIKey: "test-key"}, zap.NewNop())
	require.NoError(t, client.SendText(context.Background(), "+5215550001111", "hola"))

	assert.Equal(t, "/whatsapp_messages", gotPath)
	assert.Equal(t, "test-key", gotKey)

	msg := gotBody["whatsapp_message"].(map[string]any)
	assert.Equal(t, "+5215550001111", msg["phone"])
	assert.Equal(t, "text", msg["message_type"])
	assert.Equal(t, "hola", msg["text"].(map[string]any)["body"])
}

func TestClient_SendText_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(&config.WhatsAppConfig{APIURL: server.URL, APIKey: "bad"}, zap.NewNop())
	err := client.SendText(context.Background(), "+5215550001111", "hola")
	assert.ErrorContains(t, err, "401")
}

func TestClient_FetchMedia(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("fake-image-bytes"))
	}))
	defer server.Close()

	client := NewClient(&config.WhatsAppConfig{APIURL: server.URL}, zap.NewNop())
	data, contentType, err := client.FetchMedia(context.Background(), server.URL+"/media/123")
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-image-bytes"), data)
	assert.Equal(t, "image/png", contentType)
}

func TestClient_FetchMedia_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client := NewClient(&config.WhatsAppConfig{APIURL: server.URL}, zap.NewNop())
	_, _, err := client.FetchMedia(context.Background(), server.URL+"/gone")
	assert.ErrorContains(t, err, "404")
}
