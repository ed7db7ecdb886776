package websocket

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rello/rello-backend/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient is a test double for Client that captures sent messages
type mockClient struct {
	id       string
	messages [][]byte
	mu       sync.Mutex
	closed   bool
}

func newMockClient(id string) *mockClient {
	return &mockClient{
		id:       id,
		messages: make([][]byte, 0),
	}
}

func (m *mockClient) ID() string {
	return m.id
}

func (m *mockClient) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClientClosed
	}
	m.messages = append(m.messages, data)
	return nil
}

func (m *mockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockClient) GetMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([][]byte, len(m.messages))
	copy(copied, m.messages)
	return copied
}

func waitForMessages(t *testing.T, client *mockClient, want int) [][]byte {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		messages := client.GetMessages()
		if len(messages) >= want {
			return messages
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages, got %d", want, len(client.GetMessages()))
	return nil
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()

	client1 := newMockClient("client-1")
	client2 := newMockClient("client-2")

	hub.Register(client1)
	hub.Register(client2)
	assert.Equal(t, 2, hub.ClientCount())

	hub.Unregister(client1)
	assert.Equal(t, 1, hub.ClientCount())

	// Unregistering twice is a no-op
	hub.Unregister(client1)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()

	client1 := newMockClient("client-1")
	client2 := newMockClient("client-2")
	hub.Register(client1)
	hub.Register(client2)

	hub.Broadcast([]byte(`{"type":"payout.queued"}`))

	for _, client := range []*mockClient{client1, client2} {
		messages := waitForMessages(t, client, 1)
		assert.Equal(t, `{"type":"payout.queued"}`, string(messages[0]))
	}
}

func TestHub_Broadcast_NoClients(t *testing.T) {
	hub := NewHub()

	// Must not panic with nobody connected
	hub.Broadcast([]byte(`{}`))
}

func TestFeed_EmitWrapsEnvelope(t *testing.T) {
	hub := NewHub()
	client := newMockClient("client-1")
	hub.Register(client)

	feed := NewFeed(hub)
	feed.Emit(event.PayoutQueued, map[string]string{"id": "abc"}, "queue:abc")

	messages := waitForMessages(t, client, 1)

	var env event.Envelope
	require.NoError(t, json.Unmarshal(messages[0], &env))
	assert.Equal(t, event.PayoutQueued, env.Type)
	assert.False(t, env.Timestamp.IsZero())

	payload, ok := env.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "abc", payload["id"])
}
