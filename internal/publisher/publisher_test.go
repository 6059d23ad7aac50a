package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"cv-pipeline-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedMessage struct {
	exchange   string
	routingKey string
	data       interface{}
	persistent bool
}

type fakeMessageQueue struct {
	ensuredExchanges []string
	published        []publishedMessage
	publishErr       error
}

func (f *fakeMessageQueue) PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error {
	return errors.New("not used in tests")
}

func (f *fakeMessageQueue) PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, publishedMessage{exchangeName, routingKey, data, persistent})
	return nil
}

func (f *fakeMessageQueue) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	f.ensuredExchanges = append(f.ensuredExchanges, exchangeName)
	return nil
}

func (f *fakeMessageQueue) EnsureQueue(queueName string, durable bool) error { return nil }

func (f *fakeMessageQueue) BindQueue(queueName, exchangeName, routingKey string) error { return nil }

func (f *fakeMessageQueue) Close() error { return nil }

func TestPublishSuccessUsesParsedRoutingKey(t *testing.T) {
	mq := &fakeMessageQueue{}
	p, err := NewResultPublisher(mq, "cv.processing.exchange", "cv-parsed", "processing-failed")
	require.NoError(t, err)

	assert.Contains(t, mq.ensuredExchanges, "cv.processing.exchange")

	record := &types.ParsedResumeRecord{
		DocumentID: 42,
		EventKind:  types.EventKindCVParsed,
	}
	require.NoError(t, p.PublishSuccess(context.Background(), record))

	require.Len(t, mq.published, 1)
	msg := mq.published[0]
	assert.Equal(t, "cv.processing.exchange", msg.exchange)
	assert.Equal(t, "cv-parsed", msg.routingKey)
	assert.True(t, msg.persistent)
	assert.Same(t, record, msg.data)
}

func TestPublishFailureUsesFailedRoutingKey(t *testing.T) {
	mq := &fakeMessageQueue{}
	p, err := NewResultPublisher(mq, "cv.processing.exchange", "cv-parsed", "processing-failed")
	require.NoError(t, err)

	failure := &types.ProcessingFailureRecord{
		DocumentID:     42,
		ErrorMessage:   "获取文档失败",
		EventKind:      types.EventKindProcessingFailed,
		ErrorTimestamp: time.Now().UTC(),
	}
	require.NoError(t, p.PublishFailure(context.Background(), failure))

	require.Len(t, mq.published, 1)
	assert.Equal(t, "processing-failed", mq.published[0].routingKey)
}

func TestPublishErrorsPropagate(t *testing.T) {
	mq := &fakeMessageQueue{publishErr: errors.New("channel closed")}
	p, err := NewResultPublisher(mq, "cv.processing.exchange", "cv-parsed", "processing-failed")
	require.NoError(t, err)

	err = p.PublishSuccess(context.Background(), &types.ParsedResumeRecord{})
	require.Error(t, err)

	err = p.PublishFailure(context.Background(), &types.ProcessingFailureRecord{})
	require.Error(t, err)
}

func TestPublishNilRecords(t *testing.T) {
	mq := &fakeMessageQueue{}
	p, err := NewResultPublisher(mq, "cv.processing.exchange", "cv-parsed", "processing-failed")
	require.NoError(t, err)

	require.Error(t, p.PublishSuccess(context.Background(), nil))
	require.Error(t, p.PublishFailure(context.Background(), nil))
}
