package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Event tests ---

func TestNewEvent_Fields(t *testing.T) {
	type UserData struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
	}

	data := UserData{UserID: "u-123", Email: "alice@example.com"}
	event, err := NewEvent("user.registered", "u-123", "user", "manga-tracker", data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID, "EventID should be a non-empty UUID")
	assert.Equal(t, "user.registered", event.EventType)
	assert.Equal(t, "u-123", event.AggregateID)
	assert.Equal(t, "user", event.AggregateType)
	assert.Equal(t, "manga-tracker", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var roundTripped UserData
	require.NoError(t, json.Unmarshal(event.Data, &roundTripped))
	assert.Equal(t, data, roundTripped)
}

func TestNewEvent_InvalidData(t *testing.T) {
	// Channels are not serializable to JSON.
	_, err := NewEvent("user.registered", "u-1", "user", "manga-tracker", make(chan int))
	require.Error(t, err)
}

func TestEvent_Marshal(t *testing.T) {
	event, err := NewEvent("user.updated", "u-456", "user", "manga-tracker", map[string]string{"email": "bob@example.com"})
	require.NoError(t, err)
	event.WithCorrelationID("corr-abc")

	bytes, err := event.Marshal()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(bytes, &decoded))
	assert.Equal(t, event.EventID, decoded["event_id"])
	assert.Equal(t, "user.updated", decoded["event_type"])
	assert.Equal(t, "corr-abc", decoded["correlation_id"])
}

func TestEvent_WithCorrelationID_Chains(t *testing.T) {
	event, err := NewEvent("user.deleted", "u-1", "user", "manga-tracker", nil)
	require.NoError(t, err)

	result := event.WithCorrelationID("corr-xyz")
	assert.Same(t, event, result)
	assert.Equal(t, "corr-xyz", event.CorrelationID)
}

// --- ProducerConfig tests ---

func TestDefaultProducerConfig(t *testing.T) {
	brokers := []string{"broker1:9092", "broker2:9092"}
	cfg := DefaultProducerConfig(brokers)

	assert.Equal(t, brokers, cfg.Brokers)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 10*time.Millisecond, cfg.BatchTimeout)
	assert.False(t, cfg.Async)
}

func TestDefaultProducerConfig_SingleBroker(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"localhost:9092"})
	assert.Len(t, cfg.Brokers, 1)
	assert.Equal(t, "localhost:9092", cfg.Brokers[0])
}

// --- Topic tests ---

func TestTopic_Format(t *testing.T) {
	got := Topic("user", "registered")
	assert.Equal(t, "mangatracker.user.registered", got)
}

func TestTopic_Prefix(t *testing.T) {
	assert.Equal(t, "mangatracker", TopicPrefix)
}

func TestTopic_VariousCombinations(t *testing.T) {
	tests := []struct {
		domain string
		action string
		want   string
	}{
		{"user", "updated", "mangatracker.user.updated"},
		{"user", "deleted", "mangatracker.user.deleted"},
		{"user", "password_changed", "mangatracker.user.password_changed"},
		{"library", "entry-added", "mangatracker.library.entry-added"},
	}

	for _, tt := range tests {
		t.Run(tt.domain+"."+tt.action, func(t *testing.T) {
			assert.Equal(t, tt.want, Topic(tt.domain, tt.action))
		})
	}
}

// --- KafkaHeaderCarrier additional tests ---

func TestNewProducer_CreatesInstance(t *testing.T) {
	// NewProducer requires broker addresses but does not connect immediately.
	// We verify the returned producer is non-nil and can be closed.
	cfg := DefaultProducerConfig([]string{"localhost:19092"})
	p := NewProducer(cfg, nil)
	require.NotNil(t, p)
	assert.Equal(t, []string{"localhost:19092"}, p.brokers)

	// Close should succeed even without a real broker.
	err := p.Close()
	assert.NoError(t, err)
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(t.Context(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers configured")
}

func TestPingBrokers_EmptySlice(t *testing.T) {
	err := PingBrokers(t.Context(), []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers configured")
}
