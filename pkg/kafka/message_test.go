package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChatMessage(t *testing.T) {
	msg := &IncomingMessage{
		Value: []byte(`{"customer_id":"cust-1","text":"Ina, 068977378"}`),
	}

	require.NoError(t, msg.ParseChatMessage())
	assert.Equal(t, "cust-1", msg.Chat.CustomerID)
	assert.Equal(t, "Ina, 068977378", msg.Chat.Text)
}

func TestParseChatMessageFallsBackToKey(t *testing.T) {
	msg := &IncomingMessage{
		Key:   "cust-key",
		Value: []byte(`{"text":"hello"}`),
	}

	require.NoError(t, msg.ParseChatMessage())
	assert.Equal(t, "cust-key", msg.Chat.CustomerID)
}

func TestParseChatMessageErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "invalid json", value: `{not json`},
		{name: "missing customer id", value: `{"text":"hello"}`},
		{name: "missing text", key: "cust-1", value: `{"customer_id":"cust-1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &IncomingMessage{Key: tt.key, Value: []byte(tt.value)}
			assert.Error(t, msg.ParseChatMessage())
		})
	}
}

func TestEffectiveTimestamp(t *testing.T) {
	envelope := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	broker := time.Date(2025, 6, 15, 11, 0, 0, 0, time.UTC)

	msg := &IncomingMessage{
		Timestamp: broker,
		Chat:      &ChatMessage{Timestamp: &envelope},
	}
	assert.Equal(t, envelope, msg.EffectiveTimestamp())

	msg.Chat.Timestamp = nil
	assert.Equal(t, broker, msg.EffectiveTimestamp())
}
