package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/dc-replenish/internal/config"
	"github.com/rl1809/dc-replenish/internal/core/domain"
)

type Producer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// NewKafkaProducer builds a traced writer for topic. Trace context travels in
// the message headers.
func NewKafkaProducer(broker, topic string, tp trace.TracerProvider) (Producer, error) {
	baseWriter := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: config.KafkaBatchTimeout,
		BatchSize:    config.KafkaBatchSize,
	}

	writer, err := otelkafka.NewWriter(baseWriter,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(topic),
				attribute.String("messaging.kafka.client_id", config.ServiceName),
			},
		),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka writer: %w", err)
	}
	return writer, nil
}

// OutcomePublisher emits completed transfers to Kafka, keyed by SKU so all
// movements of one SKU stay ordered within a partition.
type OutcomePublisher struct {
	producer Producer
}

func NewOutcomePublisher(producer Producer) *OutcomePublisher {
	return &OutcomePublisher{producer: producer}
}

func (p *OutcomePublisher) NotifyOutcome(ctx context.Context, n domain.OutcomeNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal outcome %s: %w", n.TransferID, err)
	}

	msg := kafka.Message{
		Key:   []byte(n.SKU),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "transfer_id", Value: []byte(n.TransferID)},
		},
	}
	if err := p.producer.WriteMessage(ctx, msg); err != nil {
		return fmt.Errorf("publish outcome %s: %w", n.TransferID, err)
	}
	return nil
}

func (p *OutcomePublisher) Close() error {
	return p.producer.Close()
}
