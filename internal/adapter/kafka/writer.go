// Package kafka publishes linked space weather events to a sink topic for
// downstream machine consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/space-weather-analysis/internal/domain"
)

// Writer produces linked-event messages to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishLinked serializes and publishes a run's linked events in a single
// WriteMessages call for efficiency.
func (w *Writer) PublishLinked(ctx context.Context, events []domain.LinkedEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a LinkedEvent into a Kafka message. The key is
// the GST/CME pair so replays of the same range land on the same partition.
func serializeToMessage(event domain.LinkedEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize linked event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.GSTID + "|" + event.CMEID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "cme_id", Value: []byte(event.CMEID)},
			{Key: "gst_id", Value: []byte(event.GSTID)},
			{Key: "gst_time", Value: []byte(event.GSTStartTime.Format(time.RFC3339))},
		},
	}, nil
}
