package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"shop-service/internal/repository"
)

const relayBatchSize = 100

type Outbox interface {
	FetchPending(ctx context.Context, limit int) ([]repository.OutboxRecord, error)
	MarkSent(ctx context.Context, ids ...int64) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Relay publishes outbox rows to Kafka. Rows are marked sent only after the
// broker has acknowledged them, so delivery is at least once.
type Relay struct {
	outbox   Outbox
	writer   MessageWriter
	interval time.Duration
	logger   *zap.Logger
}

func NewRelay(outbox Outbox, writer MessageWriter, interval time.Duration, logger *zap.Logger) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	return &Relay{
		outbox:   outbox,
		writer:   writer,
		interval: interval,
		logger:   logger.Named("outbox_relay"),
	}
}

// NewWriter builds a writer that routes messages by key, so events of one
// order stay on one partition. The topic comes from each message.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warn("outbox flush failed", zap.Error(err))
			}
		}
	}
}

// Flush publishes one batch of pending rows and returns how many were sent.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	records, err := r.outbox.FetchPending(ctx, relayBatchSize)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, 0, len(records))
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		msgs = append(msgs, kafka.Message{
			Topic: rec.Topic,
			Key:   []byte(rec.Key),
			Value: rec.Payload,
			Time:  rec.CreatedAt.UTC(),
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(rec.EventID.String())},
			},
		})
		ids = append(ids, rec.ID)
	}

	if err := r.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, err
	}
	if err := r.outbox.MarkSent(ctx, ids...); err != nil {
		return 0, err
	}

	r.logger.Debug("outbox flushed", zap.Int("count", len(ids)))
	return len(ids), nil
}
