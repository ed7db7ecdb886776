package websocket

import (
	"encoding/json"
	"time"

	"github.com/rello/rello-backend/internal/event"
	"github.com/rs/zerolog/log"
)

// Feed adapts the Hub to event.Emitter so core engine events stream to
// connected operator dashboards.
type Feed struct {
	hub *Hub
}

// NewFeed creates a Feed over the given hub
func NewFeed(hub *Hub) *Feed {
	return &Feed{hub: hub}
}

var _ event.Emitter = (*Feed)(nil)

// Emit broadcasts the event to all connected clients.
func (f *Feed) Emit(eventType event.Type, payload interface{}, idempotencyKey string) {
	data, err := json.Marshal(event.Envelope{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		log.Error().Err(err).Str("event", string(eventType)).Msg("Failed to serialize event")
		return
	}
	f.hub.Broadcast(data)
}
