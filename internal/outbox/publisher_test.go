package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSource struct{ mock.Mock }

func (m *MockSource) Fetch(ctx context.Context, limit int) ([]OutboxRow, error) {
	args := m.Called(ctx, limit)
	rows, _ := args.Get(0).([]OutboxRow)
	return rows, args.Error(1)
}

func (m *MockSource) MarkPublished(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockSink struct{ mock.Mock }

func (m *MockSink) Publish(ctx context.Context, topic string, key, value []byte) error {
	return m.Called(ctx, topic, key, value).Error(0)
}

func TestPublishBatch_MarksOnlyDelivered(t *testing.T) {
	ctx := context.Background()
	src := new(MockSource)
	sink := new(MockSink)

	rows := []OutboxRow{
		{ID: "1", Topic: "journal.post.events", Key: "lin", Payload: []byte(`{"op":"post.created"}`)},
		{ID: "2", Topic: "journal.post.events", Key: "lin", Payload: []byte(`{"op":"post.deleted"}`)},
	}
	src.On("Fetch", ctx, batchSize).Return(rows, nil)
	sink.On("Publish", ctx, "journal.post.events", []byte("lin"), rows[0].Payload).Return(nil)
	sink.On("Publish", ctx, "journal.post.events", []byte("lin"), rows[1].Payload).Return(errors.New("broker down"))
	src.On("MarkPublished", ctx, "1").Return(nil)

	NewPublisher(src, sink, 0).publishBatch(ctx)

	src.AssertCalled(t, "MarkPublished", ctx, "1")
	src.AssertNotCalled(t, "MarkPublished", ctx, "2")
	sink.AssertExpectations(t)
}

func TestPublishBatch_FetchError(t *testing.T) {
	ctx := context.Background()
	src := new(MockSource)
	sink := new(MockSink)
	src.On("Fetch", ctx, batchSize).Return(nil, errors.New("db down"))

	NewPublisher(src, sink, 0).publishBatch(ctx)

	sink.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.True(t, src.AssertExpectations(t))
}
