// Package kafka publishes partition-completion announcements so downstream
// consumers (dashboard refresh, DuckDB cache warmers) can react without
// polling the output directory.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/riverspeak/nwis-ingest/internal/config"
)

// CompletionEvent is the JSON value published for each committed partition.
type CompletionEvent struct {
	State       string    `json:"state"`
	Rows        int       `json:"rows"`
	Path        string    `json:"path"`
	CompletedAt time.Time `json:"completed_at"`
}

// Notifier produces completion events to the configured topic. It is
// optional: the pipeline takes nil when KAFKA_ENABLED is off.
type Notifier struct {
	writer *kafkago.Writer
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the completion topic.
func NewNotifier(cfg *config.Config, clock clockwork.Clock, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaCompletionTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{writer: w, clock: clock, logger: logger}
}

// PartitionCompleted publishes one completion event, keyed by state so
// per-partition ordering is preserved across reruns.
func (n *Notifier) PartitionCompleted(ctx context.Context, state string, rows int, path string) error {
	msg, err := serializeCompletion(CompletionEvent{
		State:       state,
		Rows:        rows,
		Path:        path,
		CompletedAt: n.clock.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, msg)
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeCompletion marshals a CompletionEvent into a Kafka message.
func serializeCompletion(event CompletionEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize completion event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.State),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "completed_at", Value: []byte(event.CompletedAt.Format(time.RFC3339))},
		},
	}, nil
}
