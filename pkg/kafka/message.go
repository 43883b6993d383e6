// Package kafka consumes chat message envelopes from the ingest topic.
package kafka

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChatMessage is the inbound envelope published by the messaging bridge.
// Timestamp is optional; absent timestamps fall back to the broker's
// message time.
type ChatMessage struct {
	CustomerID string     `json:"customer_id"`
	Text       string     `json:"text"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// IncomingMessage wraps one fetched Kafka message plus its parsed
// envelope.
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	Chat *ChatMessage
}

// ParseChatMessage decodes and validates the envelope. A missing
// customer id falls back to the message key.
func (m *IncomingMessage) ParseChatMessage() error {
	var chat ChatMessage
	if err := json.Unmarshal(m.Value, &chat); err != nil {
		return fmt.Errorf("invalid chat message payload: %w", err)
	}

	if chat.CustomerID == "" {
		chat.CustomerID = m.Key
	}
	if chat.CustomerID == "" {
		return fmt.Errorf("chat message missing customer_id")
	}
	if chat.Text == "" {
		return fmt.Errorf("chat message missing text")
	}

	m.Chat = &chat
	return nil
}

// EffectiveTimestamp returns the envelope timestamp when present,
// otherwise the broker message time.
func (m *IncomingMessage) EffectiveTimestamp() time.Time {
	if m.Chat != nil && m.Chat.Timestamp != nil {
		return *m.Chat.Timestamp
	}
	if !m.Timestamp.IsZero() {
		return m.Timestamp
	}
	return time.Now()
}
