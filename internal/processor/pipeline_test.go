package processor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cv-pipeline-go/internal/parser"
	"cv-pipeline-go/internal/storage"
	"cv-pipeline-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 测试替身 ---

type fakeFetcher struct {
	data      []byte
	err       error
	callCount int
}

func (f *fakeFetcher) Fetch(ctx context.Context, storagePath string) ([]byte, error) {
	f.callCount++
	return f.data, f.err
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(ctx context.Context, data []byte, mimeType string, uri string) (string, error) {
	return f.text, f.err
}

type fakeAi struct {
	reply     string
	err       error
	callCount int
}

func (f *fakeAi) Invoke(ctx context.Context, cvText string) (string, error) {
	f.callCount++
	return f.reply, f.err
}

func (f *fakeAi) ModelName() string { return "qwen-plus" }

type fakePublisher struct {
	successErr error
	failureErr error

	published []*types.ParsedResumeRecord
	failures  []*types.ProcessingFailureRecord
}

func (f *fakePublisher) PublishSuccess(ctx context.Context, record *types.ParsedResumeRecord) error {
	if f.successErr != nil {
		return f.successErr
	}
	f.published = append(f.published, record)
	return nil
}

func (f *fakePublisher) PublishFailure(ctx context.Context, record *types.ProcessingFailureRecord) error {
	if f.failureErr != nil {
		return f.failureErr
	}
	f.failures = append(f.failures, record)
	return nil
}

func testNotification() *storage.InboundDocumentNotification {
	return &storage.InboundDocumentNotification{
		DocumentID:   42,
		SubjectID:    "subject-7",
		DocumentKind: types.DocumentKindCV,
		StoragePath:  "cv/42/resume.pdf",
		MimeType:     "application/pdf",
		OccurredAt:   time.Now(),
	}
}

const goodReply = "```json\n{\"skills\": [\"Go\", \"SQL\"], \"detectedDocumentLanguage\": \"en\", \"atsAnalysis\": {\"overallScore\": 82, \"compatibilityLevel\": \"GOOD\", \"scoreBreakdown\": {\"formatScore\": 15, \"contentScore\": 25, \"skillsScore\": 20, \"experienceScore\": 22}}}\n```"

func newTestPipeline(t *testing.T, fetcher *fakeFetcher, extractor *fakeExtractor, ai *fakeAi, publisher *fakePublisher) *Pipeline {
	t.Helper()
	p, err := NewPipeline(fetcher, extractor, ai, parser.NewAiResponseParser(), publisher)
	require.NoError(t, err)
	return p
}

// --- 测试用例 ---

func TestProcessHappyPath(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("%PDF")}
	extractor := &fakeExtractor{text: "简历全文"}
	ai := &fakeAi{reply: goodReply}
	publisher := &fakePublisher{}

	p := newTestPipeline(t, fetcher, extractor, ai, publisher)

	err := p.Process(context.Background(), testNotification())
	require.NoError(t, err)

	require.Len(t, publisher.published, 1)
	record := publisher.published[0]

	// 流水线填充的字段
	assert.Equal(t, "subject-7", record.SubjectID)
	assert.Equal(t, int64(42), record.DocumentID)
	assert.Equal(t, types.EventKindCVParsed, record.EventKind)
	require.NotNil(t, record.ProcessingMetadata)
	assert.Equal(t, "qwen-plus", record.ProcessingMetadata.ModelIdentifier)
	assert.Equal(t, "en", record.ProcessingMetadata.DetectedLanguage)
	assert.NotEmpty(t, record.ProcessingMetadata.ProcessedAt)

	// 模型输出的字段
	assert.Equal(t, []string{"Go", "SQL"}, record.Skills)
	assert.Equal(t, 82, *record.AtsAnalysis.OverallScore)

	assert.Empty(t, publisher.failures)
}

func TestProcessFetchFailureSkipsAI(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("文档服务返回非2xx状态码 404")}
	ai := &fakeAi{reply: goodReply}
	publisher := &fakePublisher{}

	p := newTestPipeline(t, fetcher, &fakeExtractor{}, ai, publisher)

	err := p.Process(context.Background(), testNotification())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDocumentFetchFailed)

	// 获取失败后绝不触发AI调用
	assert.Equal(t, 0, ai.callCount)

	// 失败事件已发布
	require.Len(t, publisher.failures, 1)
	failure := publisher.failures[0]
	assert.Equal(t, int64(42), failure.DocumentID)
	assert.Equal(t, types.EventKindProcessingFailed, failure.EventKind)
	assert.Contains(t, failure.ErrorMessage, "404")
	assert.False(t, failure.ErrorTimestamp.IsZero())
}

func TestProcessAITimeoutProducesFailureRecord(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("%PDF")}
	extractor := &fakeExtractor{text: "简历全文"}
	ai := &fakeAi{err: errors.New("context deadline exceeded")}
	publisher := &fakePublisher{}

	p := newTestPipeline(t, fetcher, extractor, ai, publisher)

	err := p.Process(context.Background(), testNotification())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAIInvocationFailed)

	require.Len(t, publisher.failures, 1)
	assert.Contains(t, publisher.failures[0].ErrorMessage, "deadline exceeded")
}

func TestProcessUnparseableReply(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("%PDF")}
	extractor := &fakeExtractor{text: "简历全文"}
	ai := &fakeAi{reply: "抱歉，我不能输出JSON"}
	publisher := &fakePublisher{}

	p := newTestPipeline(t, fetcher, extractor, ai, publisher)

	err := p.Process(context.Background(), testNotification())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReplyParseFailed)
	require.Len(t, publisher.failures, 1)
}

func TestProcessSuccessPublishFailureFailsPipeline(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("%PDF")}
	extractor := &fakeExtractor{text: "简历全文"}
	ai := &fakeAi{reply: goodReply}
	publisher := &fakePublisher{successErr: errors.New("broker unavailable")}

	p := newTestPipeline(t, fetcher, extractor, ai, publisher)

	err := p.Process(context.Background(), testNotification())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResultPublishFailed)

	// 成功事件没发出去，失败事件走尽力而为分支
	require.Len(t, publisher.failures, 1)
}

func TestProcessFailurePublishIsolated(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	publisher := &fakePublisher{failureErr: errors.New("broker also down")}

	p := newTestPipeline(t, fetcher, &fakeExtractor{}, &fakeAi{}, publisher)

	// 失败事件发布失败不改变返回的阶段错误
	err := p.Process(context.Background(), testNotification())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDocumentFetchFailed)
}

func TestProcessExtractFailure(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("garbage")}
	extractor := &fakeExtractor{err: errors.New("PDF解析失败")}
	ai := &fakeAi{}
	publisher := &fakePublisher{}

	p := newTestPipeline(t, fetcher, extractor, ai, publisher)

	err := p.Process(context.Background(), testNotification())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTextExtractFailed)
	assert.Equal(t, 0, ai.callCount)
}

func TestCVProcessErrorFormat(t *testing.T) {
	err := NewFetchError(42, "http 404")
	assert.Contains(t, err.Error(), "42")
	assert.Contains(t, err.Error(), "http 404")
	assert.ErrorIs(t, err, ErrDocumentFetchFailed)

	var procErr *CVProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "fetch", procErr.Op)
}
