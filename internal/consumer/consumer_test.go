package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"cv-pipeline-go/internal/storage"
	"cv-pipeline-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcker struct {
	ackCount    int
	rejectCount int
}

func (f *fakeAcker) Ack() error    { f.ackCount++; return nil }
func (f *fakeAcker) Reject() error { f.rejectCount++; return nil }

type fakeProcessor struct {
	err       error
	callCount int
	received  []*storage.InboundDocumentNotification
}

func (f *fakeProcessor) Process(ctx context.Context, notification *storage.InboundDocumentNotification) error {
	f.callCount++
	f.received = append(f.received, notification)
	return f.err
}

func newTestConsumer(pipeline Processor) *Consumer {
	return &Consumer{
		pipeline:       pipeline,
		processTimeout: time.Second,
	}
}

func TestHandleNonCVDocumentAckedWithoutProcessing(t *testing.T) {
	pipeline := &fakeProcessor{}
	c := newTestConsumer(pipeline)
	acker := &fakeAcker{}

	body := []byte(`{"documentId": 7, "subjectId": "s-1", "documentKind": "COVER_LETTER", "storagePath": "letters/7.pdf", "mimeType": "application/pdf"}`)
	c.Handle(body, acker)

	// 非CV文档：立即确认，处理链完全不触发
	assert.Equal(t, 1, acker.ackCount)
	assert.Equal(t, 0, acker.rejectCount)
	assert.Equal(t, 0, pipeline.callCount)
}

func TestHandleCVSuccessAcked(t *testing.T) {
	pipeline := &fakeProcessor{}
	c := newTestConsumer(pipeline)
	acker := &fakeAcker{}

	body := []byte(`{"documentId": 42, "subjectId": "s-7", "documentKind": "CV", "storagePath": "cv/42.pdf", "mimeType": "application/pdf"}`)
	c.Handle(body, acker)

	assert.Equal(t, 1, acker.ackCount)
	assert.Equal(t, 0, acker.rejectCount)
	require.Equal(t, 1, pipeline.callCount)
	assert.Equal(t, int64(42), pipeline.received[0].DocumentID)
	assert.Equal(t, types.DocumentKindCV, pipeline.received[0].DocumentKind)
}

func TestHandleCVFailureRejected(t *testing.T) {
	pipeline := &fakeProcessor{err: errors.New("获取文档失败")}
	c := newTestConsumer(pipeline)
	acker := &fakeAcker{}

	body := []byte(`{"documentId": 42, "documentKind": "CV", "storagePath": "cv/42.pdf"}`)
	c.Handle(body, acker)

	assert.Equal(t, 0, acker.ackCount)
	assert.Equal(t, 1, acker.rejectCount)
}

func TestHandleMalformedBodyRejected(t *testing.T) {
	pipeline := &fakeProcessor{}
	c := newTestConsumer(pipeline)
	acker := &fakeAcker{}

	c.Handle([]byte("这不是JSON"), acker)

	assert.Equal(t, 0, acker.ackCount)
	assert.Equal(t, 1, acker.rejectCount)
	assert.Equal(t, 0, pipeline.callCount)
}

func TestGuardedAckerExactlyOnce(t *testing.T) {
	inner := &fakeAcker{}
	g := newGuardedAcker(inner)

	require.NoError(t, g.Ack())
	// 之后的任何确认调用都被忽略
	require.NoError(t, g.Ack())
	require.NoError(t, g.Reject())

	assert.Equal(t, 1, inner.ackCount)
	assert.Equal(t, 0, inner.rejectCount)

	inner2 := &fakeAcker{}
	g2 := newGuardedAcker(inner2)
	require.NoError(t, g2.Reject())
	require.NoError(t, g2.Ack())

	assert.Equal(t, 0, inner2.ackCount)
	assert.Equal(t, 1, inner2.rejectCount)
}
