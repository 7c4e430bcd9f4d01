package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topics  []string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *capturePublisher) snapshot() [][]AggregatedLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]AggregatedLogEntry(nil), p.batches...)
}

func TestLogger_WritesTypedFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.DebugLevel)

	l.Info("fetched",
		String("symbol", "AAPL"),
		Int("bars", 252),
		Float64("pct", 12.5),
		Bool("cached", true),
		Duration("took", 1500*time.Millisecond),
		Strings("failed", []string{"X", "Y"}),
	)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "fetched", got["message"])
	assert.Equal(t, "AAPL", got["symbol"])
	assert.Equal(t, 252.0, got["bars"])
	assert.Equal(t, 12.5, got["pct"])
	assert.Equal(t, true, got["cached"])
	assert.Equal(t, 1500.0, got["took"])
	assert.Equal(t, "X,Y", got["failed"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.WarnLevel)
	l.Info("hidden")
	assert.Zero(t, buf.Len())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogger_WithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.InfoLevel).With(String("component", "fetcher"))
	l.Info("x")
	assert.Contains(t, buf.String(), `"component":"fetcher"`)
}

func TestNew_RejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}

func TestCollector_AggregatesDuplicateErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("fetch failed", String("symbol", "AAPL"), Error(errors.New("boom")))
	}
	l.Error("fetch failed", String("symbol", "MSFT"), Error(errors.New("boom")))
	l.collector.Flush()

	batches := pub.snapshot()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	assert.Equal(t, 3, batches[0][0].Count)
	assert.Equal(t, "AAPL", batches[0][0].Fields["symbol"])
	assert.Equal(t, 1, batches[0][1].Count)
	assert.Equal(t, []string{"logs"}, pub.topics)

	l.RemoveCollector()
	assert.Len(t, pub.snapshot(), 1)
}

func TestCollector_ThresholdFlushAndClose(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Topic: "logs", Publisher: pub})
	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")
	c.AddLog("error", "c", nil, "x.go:3")
	c.Close()

	total := 0
	for _, b := range pub.snapshot() {
		total += len(b)
	}
	assert.Equal(t, 3, total)
}
