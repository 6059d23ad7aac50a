package parser

import (
	"context"
	"errors"
	"testing"

	"cv-pipeline-go/internal/llm"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAndScoreSuccess(t *testing.T) {
	mockModel := llm.NewMockChatClient("```json\n{\"skills\": [\"Go\", \"SQL\"], \"atsAnalysis\": {\"overallScore\": 82, \"compatibilityLevel\": \"GOOD\", \"scoreBreakdown\": {\"formatScore\": 15, \"contentScore\": 25, \"skillsScore\": 20, \"experienceScore\": 22}}}\n```", nil)

	extractor, err := NewCVExtractor(mockModel, "qwen-plus")
	require.NoError(t, err)

	record, warnings, err := extractor.ExtractAndScore(context.Background(), "某候选人的简历全文")
	require.NoError(t, err)

	assert.Equal(t, []string{"Go", "SQL"}, record.Skills)
	assert.Equal(t, 82, *record.AtsAnalysis.OverallScore)
	assert.Empty(t, warnings)

	// 系统提示 + 含简历文本的用户消息
	received := mockModel.GetReceivedMessages()
	require.Len(t, received, 2)
	assert.Equal(t, schema.System, received[0].Role)
	assert.Contains(t, received[1].Content, "某候选人的简历全文")
}

func TestExtractAndScoreLLMError(t *testing.T) {
	mockModel := llm.NewMockChatClient("", errors.New("context deadline exceeded"))

	extractor, err := NewCVExtractor(mockModel, "qwen-plus")
	require.NoError(t, err)

	record, _, err := extractor.ExtractAndScore(context.Background(), "简历文本")
	require.Error(t, err)
	assert.Nil(t, record)
	assert.Contains(t, err.Error(), "LLM调用失败")
}

func TestExtractAndScoreUnparseableReply(t *testing.T) {
	mockModel := llm.NewMockChatClient("抱歉，这不是JSON", nil)

	extractor, err := NewCVExtractor(mockModel, "qwen-plus")
	require.NoError(t, err)

	record, _, err := extractor.ExtractAndScore(context.Background(), "简历文本")
	require.Error(t, err)
	assert.Nil(t, record)
}

func TestExtractAndScoreEmptyText(t *testing.T) {
	mockModel := llm.NewMockChatClient("{}", nil)

	extractor, err := NewCVExtractor(mockModel, "qwen-plus")
	require.NoError(t, err)

	_, _, err = extractor.ExtractAndScore(context.Background(), "   ")
	require.Error(t, err)
	// 文本为空时根本不应发起LLM调用
	assert.Equal(t, 0, mockModel.CallCount)
}

func TestNewCVExtractorRequiresModel(t *testing.T) {
	_, err := NewCVExtractor(nil, "qwen-plus")
	require.Error(t, err)
}
