package event

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// DefaultWebhookTimeout bounds one delivery attempt.
const DefaultWebhookTimeout = 3 * time.Second

// WebhookEmitter delivers events to a single webhook endpoint, signed with
// HMAC-SHA256 over the request body. Deliveries run in their own goroutine
// so a slow endpoint never stalls an engine tick.
type WebhookEmitter struct {
	url     string
	secret  []byte
	timeout time.Duration
	client  *http.Client
	logger  zerolog.Logger
}

// NewWebhookEmitter creates a WebhookEmitter. An empty URL disables
// delivery entirely.
func NewWebhookEmitter(url, secret string, timeout time.Duration, logger zerolog.Logger) *WebhookEmitter {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &WebhookEmitter{
		url:     url,
		secret:  []byte(secret),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "webhook_emitter").Logger(),
	}
}

// Emit posts the event asynchronously. Failures are logged and dropped.
func (e *WebhookEmitter) Emit(eventType Type, payload interface{}, idempotencyKey string) {
	if e.url == "" {
		return
	}
	go e.deliver(eventType, payload, idempotencyKey)
}

func (e *WebhookEmitter) deliver(eventType Type, payload interface{}, idempotencyKey string) {
	env := Envelope{Type: eventType, Timestamp: time.Now().UTC(), Payload: payload}
	body, err := json.Marshal(env)
	if err != nil {
		e.logger.Warn().Err(err).Str("event", string(eventType)).Msg("Failed to marshal event")
		return
	}

	mac := hmac.New(sha256.New, e.secret)
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		e.logger.Warn().Err(err).Str("event", string(eventType)).Msg("Failed to build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", string(eventType))
	req.Header.Set("X-Webhook-Timestamp", strconv.FormatInt(env.Timestamp.UnixMilli(), 10))
	req.Header.Set("X-Webhook-Signature", signature)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Warn().Err(err).Str("event", string(eventType)).Msg("Webhook delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		e.logger.Warn().
			Int("status", resp.StatusCode).
			Str("event", string(eventType)).
			Str("body", string(snippet)).
			Msg("Webhook returned non-2xx")
	}
}
