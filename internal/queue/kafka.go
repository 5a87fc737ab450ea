package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// KafkaWriter is the producer surface used by the Kafka dispatcher.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaReader is the consumer surface used by the Kafka consumer.
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type transferJob struct {
	TransferID string `json:"transfer_id"`
}

// Kafka publishes transfer jobs to a broker topic.
type Kafka struct {
	writer KafkaWriter
}

// NewKafka builds a Kafka-backed dispatcher.
func NewKafka(writer KafkaWriter) *Kafka {
	return &Kafka{writer: writer}
}

// Enqueue publishes the transfer id keyed by itself so all deliveries of the
// same transfer land on one partition.
func (q *Kafka) Enqueue(ctx context.Context, transferID uuid.UUID) error {
	payload, err := json.Marshal(transferJob{TransferID: transferID.String()})
	if err != nil {
		return err
	}
	return q.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(transferID.String()),
		Value: payload,
	})
}

// KafkaConsumer pulls transfer jobs and feeds them to the worker. Messages
// are committed only after successful processing, so an interrupted job is
// redelivered; the worker's terminal-state no-op absorbs the duplicate.
type KafkaConsumer struct {
	reader    KafkaReader
	processor Processor
	logger    *slog.Logger
}

// NewKafkaConsumer builds a consumer over the given reader.
func NewKafkaConsumer(reader KafkaReader, p Processor, logger *slog.Logger) *KafkaConsumer {
	return &KafkaConsumer{reader: reader, processor: p, logger: logger}
}

// Run fetches and processes messages until the context is cancelled.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		var job transferJob
		if err := json.Unmarshal(msg.Value, &job); err != nil {
			c.logger.Error("decode transfer job", "error", err)
			// Poison message: commit so it is not redelivered forever.
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.Error("commit poison message", "error", err)
			}
			continue
		}
		transferID, err := uuid.Parse(job.TransferID)
		if err != nil {
			c.logger.Error("parse transfer id", "value", job.TransferID, "error", err)
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.Error("commit poison message", "error", err)
			}
			continue
		}

		if err := c.processor.Process(ctx, transferID); err != nil {
			c.logger.Error("process transfer", "transfer_id", transferID, "error", err)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit message", "transfer_id", transferID, "error", err)
		}
	}
}
