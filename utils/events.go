package utils

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/cppla/newsboard/config"
)

// Event types published by the board.
const (
	EventInteraction  = "interaction.updated"
	EventNewsIngested = "news.ingested"
	EventItemDeleted  = "item.deleted"
	EventPostCreated  = "post.created"
)

// Event is a domain notification. Consumers key on ItemID.
type Event struct {
	Type     string    `json:"type"`
	ItemID   int64     `json:"item_id,omitempty"`
	ItemType string    `json:"item_type,omitempty"`
	UserID   uint      `json:"user_id,omitempty"`
	Kind     string    `json:"kind,omitempty"`
	Likes    int64     `json:"likes,omitempty"`
	Dislikes int64     `json:"dislikes,omitempty"`
	Count    int       `json:"count,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher fans domain events out. Publishing is best-effort and never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
	Close() error
}

// NopPublisher drops events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
func (NopPublisher) Close() error                   { return nil }

// KafkaPublisher writes events as JSON to one topic. Writes are asynchronous; Close flushes them.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher returns a Kafka publisher when brokers are configured, otherwise a no-op.
func NewPublisher(cfg config.AppConfig, logger *zap.Logger) Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	// Async keeps the request path off the batch flush; delivery failures surface in Completion.
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn("publish events failed", zap.Int("messages", len(messages)), zap.Error(err))
			}
		},
	}
	return &KafkaPublisher{writer: w, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return
	}
	msg := kafka.Message{Key: []byte(strconv.FormatInt(ev.ItemID, 10)), Value: value}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("publish event failed", zap.String("type", ev.Type), zap.Int64("item_id", ev.ItemID), zap.Error(err))
	}
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
