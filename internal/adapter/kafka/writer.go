// Package kafka mirrors station telemetry and broadcast results to a fleet
// event topic. Optional and feature-flagged; the HTTP coordination server
// remains the primary boundary, this stream only feeds fleet-wide ingestion.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/broadcast"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/domain"
)

// Writer produces station events to the fleet topic. It implements
// controller.EventSink.
type Writer struct {
	writer    *kafkago.Writer
	stationID string
	logger    *slog.Logger
}

// NewWriter creates a producer for the given brokers and topic.
func NewWriter(brokers []string, topic, stationID string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
	}
	return &Writer{writer: w, stationID: stationID, logger: logger}
}

type telemetryEvent struct {
	Station string `json:"station"`
	domain.Telemetry
}

type resultEvent struct {
	Station   string    `json:"station"`
	Category  string    `json:"category"`
	Succeeded int       `json:"success_count"`
	Failed    int       `json:"failure_count"`
	Timestamp time.Time `json:"timestamp"`
}

// PublishTelemetry mirrors one telemetry snapshot to the fleet topic.
func (w *Writer) PublishTelemetry(ctx context.Context, t domain.Telemetry) error {
	return w.publish(ctx, "telemetry", telemetryEvent{Station: w.stationID, Telemetry: t}, t.Timestamp)
}

// PublishResult mirrors one broadcast outcome to the fleet topic.
func (w *Writer) PublishResult(ctx context.Context, r broadcast.Result) error {
	return w.publish(ctx, "broadcast-result", resultEvent{
		Station:   w.stationID,
		Category:  string(r.Category),
		Succeeded: r.Succeeded,
		Failed:    r.Failed,
		Timestamp: r.Timestamp,
	}, r.Timestamp)
}

func (w *Writer) publish(ctx context.Context, eventType string, payload any, ts time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("serialize %s event: %w", eventType, err)
	}
	return w.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(w.stationID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "emitted_at", Value: []byte(ts.Format(time.RFC3339))},
		},
	})
}

func (w *Writer) Close() error {
	return w.writer.Close()
}
