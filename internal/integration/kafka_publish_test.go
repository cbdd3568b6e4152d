//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/space-weather-analysis/internal/adapter/kafka"
	"github.com/couchcryptid/space-weather-analysis/internal/domain"
)

const testSinkTopic = "test-linked-events"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-broker Kafka container and returns its
// bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(container))
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func sampleEvents() []domain.LinkedEvent {
	cmeTime := time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC)
	gstTime := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	return []domain.LinkedEvent{
		{
			CMEID:               "2024-01-01T02:00:00-CME-001",
			CMEStartTime:        cmeTime,
			GSTID:               "2024-01-01T14:00:00-GST-001",
			GSTStartTime:        gstTime,
			TimeDifferenceHours: 12,
			KpIndex:             5,
			Speed:               800,
			Type:                "S",
			Angle:               120,
			Latitude:            -10,
			Longitude:           40,
		},
		{
			CMEID:               "2024-01-02T03:00:00-CME-001",
			CMEStartTime:        cmeTime.Add(25 * time.Hour),
			GSTID:               "2024-01-03T06:00:00-GST-001",
			GSTStartTime:        gstTime.Add(40 * time.Hour),
			TimeDifferenceHours: 27,
			KpIndex:             7,
			Speed:               domain.NaN(),
			Type:                "Unknown",
			Angle:               domain.NaN(),
			Latitude:            domain.NaN(),
			Longitude:           domain.NaN(),
		},
	}
}

// TestPublishLinkedRoundTrip verifies that linked events published through
// the adapter arrive on the sink topic with their keys, headers, and payloads
// intact, including null serialization of missing numerics.
func TestPublishLinkedRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	writer := kafka.NewWriter([]string{broker}, testSinkTopic, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	events := sampleEvents()
	require.NoError(t, writer.PublishLinked(ctx, events))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make([]kafkago.Message, 0, len(events))
	for len(received) < len(events) {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from sink topic")
		received = append(received, msg)
	}

	require.Len(t, received, 2)

	first := received[0]
	assert.Equal(t, "2024-01-01T14:00:00-GST-001|2024-01-01T02:00:00-CME-001", string(first.Key))

	headers := make(map[string]string, len(first.Headers))
	for _, h := range first.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "2024-01-01T02:00:00-CME-001", headers["cme_id"])
	assert.Equal(t, "2024-01-01T14:00:00-GST-001", headers["gst_id"])
	_, err := time.Parse(time.RFC3339, headers["gst_time"])
	assert.NoError(t, err, "gst_time header should be valid RFC3339")

	var decoded domain.LinkedEvent
	require.NoError(t, json.Unmarshal(first.Value, &decoded))
	assert.Equal(t, domain.Float(800), decoded.Speed)
	assert.Equal(t, domain.Float(5), decoded.KpIndex)
	assert.InDelta(t, 12.0, float64(decoded.TimeDifferenceHours), 1e-9)

	// Second event carried NaN numerics, which round-trip via JSON null.
	var second domain.LinkedEvent
	require.NoError(t, json.Unmarshal(received[1].Value, &second))
	assert.True(t, second.Speed.IsNaN())
	assert.Equal(t, "Unknown", second.Type)

	// No extra messages beyond the published batch.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no third message on sink topic")
}
