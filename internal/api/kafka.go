package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/edgard/geonotify/internal/reporter"
)

// messageWriter is the part of *kafka.Writer used by KafkaReporter.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaReporter publishes location reports to a topic, keyed by push token so
// reports of one device stay ordered.
type KafkaReporter struct {
	writer messageWriter
	logger *slog.Logger
}

var _ reporter.LocationReporter = (*KafkaReporter)(nil)

// NewKafkaReporter creates a synchronous producer for cfg.Topic.
func NewKafkaReporter(cfg KafkaConfig, logger *slog.Logger) (*KafkaReporter, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaReporter(w, logger), nil
}

func newKafkaReporter(w messageWriter, logger *slog.Logger) *KafkaReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaReporter{writer: w, logger: logger.With("component", "kafka")}
}

// ReportLocation implements reporter.LocationReporter.
func (k *KafkaReporter) ReportLocation(ctx context.Context, r reporter.Report) (reporter.Ack, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return reporter.Ack{}, fmt.Errorf("failed to encode report: %w", err)
	}

	requestID := uuid.NewString()
	msg := kafka.Message{
		Key:     []byte(r.PushToken),
		Value:   data,
		Time:    time.Now().UTC(),
		Headers: []kafka.Header{{Key: "request_id", Value: []byte(requestID)}},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return reporter.Ack{}, fmt.Errorf("failed to publish report: %w", err)
	}

	k.logger.DebugContext(ctx, "Report published", "request_id", requestID)
	return reporter.Ack{Status: http.StatusAccepted}, nil
}

// Close flushes pending messages and closes the connection.
func (k *KafkaReporter) Close() error {
	return k.writer.Close()
}
