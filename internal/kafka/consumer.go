package kafka

import (
	"context"
	"errors"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/observability"
)

// Handler receives one post event payload.
type Handler interface {
	Handle(ctx context.Context, record []byte)
}

type kgoRecordCarrier struct {
	record *kgo.Record
}

func (c kgoRecordCarrier) Get(key string) string {
	for _, h := range c.record.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c kgoRecordCarrier) Set(key string, value string) {}

func (c kgoRecordCarrier) Keys() []string {
	keys := make([]string, len(c.record.Headers))
	for i, h := range c.record.Headers {
		keys[i] = h.Key
	}
	return keys
}

// Consumer reads post events keyed by username. Offsets are committed only
// after a polled batch was handled, so a crash replays the batch instead of
// losing it.
type Consumer struct {
	client  *kgo.Client
	handler Handler
}

func NewConsumer(brokers []string, group string, topics []string, handler Handler) (*Consumer, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
		kgo.OnPartitionsRevoked(func(ctx context.Context, cl *kgo.Client, _ map[string][]int32) {
			if err := cl.CommitUncommittedOffsets(ctx); err != nil {
				observability.GetLogger(ctx).Warn("kafka commit on revoke failed", zap.Error(err))
			}
		}),
		kgo.OnPartitionsAssigned(func(ctx context.Context, _ *kgo.Client, assigned map[string][]int32) {
			for topic, parts := range assigned {
				observability.GetLogger(ctx).Info("post event partitions assigned",
					zap.String("topic", topic), zap.Int32s("partitions", parts))
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	return &Consumer{client: cl, handler: handler}, nil
}

func (c *Consumer) Start(ctx context.Context) {
	go func() {
		log := observability.GetLogger(ctx)
		log.Info("post event consumer started")
		for {
			fetches := c.client.PollFetches(ctx)
			if ctx.Err() != nil {
				log.Info("post event consumer stopping")
				return
			}
			if errs := fetches.Errors(); len(errs) > 0 {
				for _, ferr := range errs {
					if errors.Is(ferr.Err, context.Canceled) {
						return
					}
					log.Error("kafka fetch error", zap.String("topic", ferr.Topic), zap.Int32("partition", ferr.Partition), zap.Error(ferr.Err))
				}
				continue
			}

			records := fetches.Records()
			if len(records) == 0 {
				continue
			}
			for _, r := range latestPerKey(records) {
				rctx := otel.GetTextMapPropagator().Extract(ctx, kgoRecordCarrier{record: r})
				c.handler.Handle(rctx, r.Value)
			}
			if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
				log.Warn("kafka commit failed", zap.Int("records", len(records)), zap.Error(err))
			}
		}
	}()
}

// latestPerKey keeps the last record of each key. Handling an event reloads
// the whole public feed of its username, so earlier events for the same
// username in one batch add nothing. Records without a key are all kept.
func latestPerKey(records []*kgo.Record) []*kgo.Record {
	last := make(map[string]int, len(records))
	for i, r := range records {
		if len(r.Key) > 0 {
			last[string(r.Key)] = i
		}
	}

	out := make([]*kgo.Record, 0, len(last))
	for i, r := range records {
		if len(r.Key) == 0 || last[string(r.Key)] == i {
			out = append(out, r)
		}
	}
	return out
}

func (c *Consumer) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
