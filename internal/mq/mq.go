// Package mq wraps the Kafka plumbing used by the response submission
// queue: one producer on the API side, one consumer in the worker.
package mq

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Config describes how to reach the submission topic.
type Config struct {
	Brokers  []string
	Topic    string
	GroupID  string
	ClientID string
}

// Validate ensures the configuration is usable; GroupID is only required
// for consumers.
func (cfg Config) Validate(consumer bool) error {
	if len(cfg.Brokers) == 0 {
		return errors.New("mq: at least one broker must be configured")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return errors.New("mq: topic must be provided")
	}
	if consumer && strings.TrimSpace(cfg.GroupID) == "" {
		return errors.New("mq: group id must be provided")
	}
	return nil
}

// Producer wraps a Kafka writer.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer constructs a Kafka producer for the submission topic.
func NewProducer(cfg Config) (*Producer, error) {
	if err := cfg.Validate(false); err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           5 * time.Second,
		BatchSize:              1,
	}
	if cfg.ClientID != "" {
		writer.Transport = &kafka.Transport{ClientID: cfg.ClientID}
	}

	log.Printf("mq: initialized producer topic=%s brokers=%s", cfg.Topic, strings.Join(cfg.Brokers, ","))
	return &Producer{writer: writer}, nil
}

// Publish sends a message to the topic.
func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value})
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Message is a Kafka message delivered to a consumer handler.
type Message struct {
	Key   []byte
	Value []byte
	Time  time.Time
}

// Handler processes messages from a consumer.
type Handler func(context.Context, Message) error

// Consumer wraps a Kafka reader and invokes a handler for each message.
type Consumer struct {
	reader  *kafka.Reader
	handler Handler
}

// NewConsumer constructs a consumer bound to the submission topic.
func NewConsumer(cfg Config, handler Handler) (*Consumer, error) {
	if err := cfg.Validate(true); err != nil {
		return nil, err
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	}
	if cfg.ClientID != "" {
		readerCfg.Dialer = &kafka.Dialer{ClientID: cfg.ClientID}
	}

	log.Printf("mq: initialized consumer topic=%s group=%s", cfg.Topic, cfg.GroupID)
	return &Consumer{reader: kafka.NewReader(readerCfg), handler: handler}, nil
}

// Run consumes messages until the context is cancelled or an unrecoverable
// error occurs. Handler errors are logged, not fatal.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil || c.reader == nil {
		return nil
	}

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			return err
		}

		if c.handler != nil {
			payload := Message{Key: msg.Key, Value: msg.Value, Time: msg.Time}
			if err := c.handler(ctx, payload); err != nil {
				log.Printf("mq: handler error for topic %s: %v", msg.Topic, err)
			}
		}
	}
}

// Close shuts down the reader.
func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
