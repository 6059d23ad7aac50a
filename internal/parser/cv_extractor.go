package parser

import (
	"context"
	"fmt"
	"strings"

	"cv-pipeline-go/internal/logger"
	"cv-pipeline-go/internal/tracing"
	"cv-pipeline-go/internal/types"

	"github.com/cloudwego/eino/components/model"
)

// CVExtractor 把简历文本交给LLM做结构化提取与ATS评分，
// 并对回复做防御式解析。组合了chat model与AiResponseParser
type CVExtractor struct {
	chatModel model.ChatModel
	parser    *AiResponseParser
	modelName string // 记入processingMetadata
}

// NewCVExtractor 创建提取器
func NewCVExtractor(chatModel model.ChatModel, modelName string) (*CVExtractor, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model不能为空")
	}

	return &CVExtractor{
		chatModel: chatModel,
		parser:    NewAiResponseParser(),
		modelName: modelName,
	}, nil
}

// ModelName 返回提取所用的模型标识
func (e *CVExtractor) ModelName() string {
	return e.modelName
}

// Invoke 发起一次提取与评分的LLM调用，返回模型的原始回复
// 不做内部重试：失败交给上游的消息重投递
func (e *CVExtractor) Invoke(ctx context.Context, cvText string) (string, error) {
	if strings.TrimSpace(cvText) == "" {
		return "", fmt.Errorf("简历文本为空")
	}

	messages := BuildCVExtractionMessages(cvText)

	logger.Ctx(ctx).Debug().
		Str("model", e.modelName).
		Str("cv_text", tracing.SafeDocumentContent(cvText)).
		Msg("发起简历提取LLM调用")

	response, err := e.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("LLM调用失败: %w", err)
	}

	return response.Content, nil
}

// ExtractAndScore 调用模型并解析回复，一步得到结构化结果
func (e *CVExtractor) ExtractAndScore(ctx context.Context, cvText string) (*types.ParsedResumeRecord, []string, error) {
	reply, err := e.Invoke(ctx, cvText)
	if err != nil {
		return nil, nil, err
	}

	record, warnings, err := e.parser.Parse(reply)
	if err != nil {
		return nil, nil, err
	}

	for _, w := range warnings {
		logger.Ctx(ctx).Warn().Str("model", e.modelName).Msg(w)
	}

	return record, warnings, nil
}
