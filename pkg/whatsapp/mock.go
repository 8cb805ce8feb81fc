package whatsapp

import (
	"context"
	"sync"
)

// MockSender records sent messages for test assertions.
type MockSender struct {
	mu       sync.Mutex
	Messages []SentMessage
	// SendErr, when set, is returned by every SendText call.
	SendErr error
}

// SentMessage is one recorded SendText call.
type SentMessage struct {
	To   string
	Text string
}

var _ Sender = (*MockSender)(nil)

// SendText implements Sender.
func (m *MockSender) SendText(ctx context.Context, toNumber, text string) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.mu.Lock()
	m.Messages = append(m.Messages, SentMessage{To: toNumber, Text: text})
	m.mu.Unlock()
	return nil
}

// Sent returns a snapshot of recorded messages.
func (m *MockSender) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.Messages))
	copy(out, m.Messages)
	return out
}

// MockFetcher serves fixed media bytes for tests.
type MockFetcher struct {
	Data        []byte
	ContentType string
	FetchErr    error

	FetchCalls int
}

var _ MediaFetcher = (*MockFetcher)(nil)

// FetchMedia implements MediaFetcher.
func (m *MockFetcher) FetchMedia(ctx context.Context, mediaURL string) ([]byte, string, error) {
	m.FetchCalls++
	if m.FetchErr != nil {
		return nil, "", m.FetchErr
	}
	contentType := m.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return m.Data, contentType, nil
}
