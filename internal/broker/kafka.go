package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shop-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventTypeHeader names the Kafka header carrying the event type
const EventTypeHeader = "event_type"

// EventWriter publishes keyed JSON events
type EventWriter interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
	Close() error
}

// typedEvent is implemented by every shop event through models.BaseEvent
type typedEvent interface {
	Type() string
}

// Producer writes shop events to one Kafka topic, keyed so that events of a
// product or a session stay ordered within a partition.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	return &Producer{writer: writer, logger: util.GetLogger()}
}

// PublishEvent publishes an event to Kafka
func (p *Producer) PublishEvent(ctx context.Context, key string, event interface{}) error {
	msg, err := encodeMessage(key, event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	p.logger.Debug("Published event",
		zap.String("key", key),
		zap.String("type", eventType(event)))
	return nil
}

// encodeMessage builds the Kafka message of an event
func encodeMessage(key string, event interface{}) (kafka.Message, error) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	return kafka.Message{
		Key:     []byte(key),
		Value:   eventBytes,
		Headers: []kafka.Header{{Key: EventTypeHeader, Value: []byte(eventType(event))}},
		Time:    time.Now(),
	}, nil
}

func eventType(event interface{}) string {
	if t, ok := event.(typedEvent); ok {
		return t.Type()
	}
	return fmt.Sprintf("%T", event)
}

// headerValue returns the value of a message header, if present
func headerValue(msg kafka.Message, key string) (string, bool) {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// LogProducer writes events to the log instead of Kafka
type LogProducer struct {
	logger *zap.Logger
}

// NewLogProducer creates a producer for deployments without Kafka
func NewLogProducer() *LogProducer {
	return &LogProducer{logger: util.GetLogger()}
}

// PublishEvent logs the encoded event
func (p *LogProducer) PublishEvent(_ context.Context, key string, event interface{}) error {
	msg, err := encodeMessage(key, event)
	if err != nil {
		return err
	}
	p.logger.Info("Event",
		zap.String("key", key),
		zap.String("type", eventType(event)),
		zap.ByteString("payload", msg.Value))
	return nil
}

// Close is a no-op
func (p *LogProducer) Close() error {
	return nil
}

// Consumer represents a Kafka consumer
type Consumer struct {
	reader *kafka.Reader
	logger *zap.Logger
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	return &Consumer{reader: reader, logger: util.GetLogger()}
}

// Close closes the consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// MessageHandler is a function type for handling messages
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// StartConsuming starts consuming messages with a handler
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Starting Kafka consumer", zap.String("topic", c.reader.Config().Topic))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer context cancelled, stopping")
			return ctx.Err()
		default:
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				c.logger.Error("Error fetching message", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}

			if err := handler(ctx, msg); err != nil {
				c.logger.Error("Error handling message",
					zap.String("key", string(msg.Key)),
					zap.Error(err))
				continue
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.Error("Error committing message", zap.Error(err))
			}
		}
	}
}
