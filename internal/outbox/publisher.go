package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/observability"
)

const batchSize = 50

type Source interface {
	Fetch(ctx context.Context, limit int) ([]OutboxRow, error)
	MarkPublished(ctx context.Context, id string) error
}

type Sink interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Publisher polls the outbox table and hands unpublished rows to Kafka.
type Publisher struct {
	src      Source
	sink     Sink
	interval time.Duration
}

func NewPublisher(src Source, sink Sink, interval time.Duration) *Publisher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Publisher{src: src, sink: sink, interval: interval}
}

// Start blocks until ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishBatch(ctx)
		}
	}
}

func (p *Publisher) publishBatch(ctx context.Context) {
	log := observability.GetLogger(ctx)

	rows, err := p.src.Fetch(ctx, batchSize)
	if err != nil {
		log.Error("outbox query failed", zap.Error(err))
		return
	}

	for _, row := range rows {
		if err := p.sink.Publish(ctx, row.Topic, []byte(row.Key), row.Payload); err != nil {
			observability.OutboxPublished.WithLabelValues("error").Inc()
			log.Warn("kafka publish failed", zap.String("outbox_id", row.ID), zap.Error(err))
			continue
		}
		observability.OutboxPublished.WithLabelValues("ok").Inc()

		if err := p.src.MarkPublished(ctx, row.ID); err != nil {
			log.Error("outbox mark published failed", zap.String("outbox_id", row.ID), zap.Error(err))
		}
	}
}
