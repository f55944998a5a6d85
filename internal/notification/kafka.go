package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaNotifier publishes submission events to a Kafka topic
type KafkaNotifier struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaNotifier creates a notifier backed by the given brokers and topic
func NewKafkaNotifier(brokers []string, topic string, logger *zap.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &KafkaNotifier{
		writer: writer,
		logger: logger,
	}
}

// SubmissionGraded publishes a graded-submission event keyed by user ID so
// events for one user stay ordered within a partition
func (n *KafkaNotifier) SubmissionGraded(ctx context.Context, event SubmissionGradedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal submission event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.UserID.String()),
		Value: data,
		Time:  time.Now(),
	}

	if err := n.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to publish submission event: %w", err)
	}

	n.logger.Debug("Submission event published",
		zap.String("submission_id", event.SubmissionID.String()),
	)
	return nil
}

// Close flushes and closes the underlying writer
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
