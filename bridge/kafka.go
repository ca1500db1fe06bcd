package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/sim"
)

// A MessageWriter writes messages to Kafka. *kafka.Writer is one.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes one message per sweep, keyed by the controller
// name, so that the sweeps of a controller stay in order on one partition.
type KafkaPublisher struct {
	writer  MessageWriter
	timeout time.Duration
}

// NewKafkaPublisher creates a publisher that writes to a topic on the given
// brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("kafka topic must not be empty")
	}

	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}

	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}), nil
}

// NewKafkaPublisherWithWriter creates a publisher around an existing writer.
func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  w,
		timeout: 5 * time.Second,
	}
}

// WithTimeout bounds the time a sweep waits for the brokers.
func (p *KafkaPublisher) WithTimeout(d time.Duration) *KafkaPublisher {
	p.timeout = d
	return p
}

// SweepCompleted publishes the node values of the sweep.
func (p *KafkaPublisher) SweepCompleted(
	c *calc.Controller,
	now sim.VTimeInSec,
) error {
	value, err := json.Marshal(NewSweepMessage(c, now))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(c.Name()),
		Value: value,
	})
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
