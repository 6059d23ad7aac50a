package processor

import (
	"context"

	"cv-pipeline-go/internal/types"
)

// DocumentFetcher 按存储路径获取文档原始字节
type DocumentFetcher interface {
	Fetch(ctx context.Context, storagePath string) ([]byte, error)
}

// TextExtractor 从文档字节中提取纯文本
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, mimeType string, uri string) (string, error)
}

// AiInvoker 发起一次提取与评分的LLM调用，返回原始回复
type AiInvoker interface {
	Invoke(ctx context.Context, cvText string) (string, error)
	ModelName() string
}

// ReplyParser 把模型原始回复解析为结构化记录
type ReplyParser interface {
	Parse(reply string) (*types.ParsedResumeRecord, []string, error)
}

// ResultPublisher 发布处理结果事件
type ResultPublisher interface {
	// PublishSuccess 发布解析成功事件；失败即整条链失败
	PublishSuccess(ctx context.Context, record *types.ParsedResumeRecord) error

	// PublishFailure 发布处理失败事件；尽力而为，失败只记日志
	PublishFailure(ctx context.Context, record *types.ProcessingFailureRecord) error
}

// Archive 处理过程归档，旁路功能
type Archive interface {
	ArchiveExtractedText(ctx context.Context, documentID int64, processingID string, text string) (string, error)
	ArchiveParsedRecord(ctx context.Context, documentID int64, processingID string, record interface{}) (string, error)
}
