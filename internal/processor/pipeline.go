package processor

import (
	"context"
	"fmt"
	"time"

	"cv-pipeline-go/internal/logger"
	"cv-pipeline-go/internal/storage"
	"cv-pipeline-go/internal/tracing"
	"cv-pipeline-go/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("cv-pipeline-go/processor")

// Stage 流水线处理阶段
type Stage string

const (
	StageReceived       Stage = "RECEIVED"
	StageFetching       Stage = "FETCHING"
	StageExtractingText Stage = "EXTRACTING_TEXT"
	StageCallingAI      Stage = "CALLING_AI"
	StageParsing        Stage = "PARSING"
	StageSucceeded      Stage = "SUCCEEDED"
	StageFailed         Stage = "FAILED"
)

// Pipeline 简历处理流水线编排器
// 单遍执行，任一阶段失败即短路进入失败分支：
// 尽力发布失败事件后把阶段错误返回给消费端，由消费端拒绝消息
type Pipeline struct {
	fetcher   DocumentFetcher
	extractor TextExtractor
	ai        AiInvoker
	parser    ReplyParser
	publisher ResultPublisher
	archive   Archive // 可为nil，归档禁用
}

// PipelineOption 流水线配置选项
type PipelineOption func(*Pipeline)

// WithArchive 启用处理过程归档
func WithArchive(archive Archive) PipelineOption {
	return func(p *Pipeline) {
		p.archive = archive
	}
}

// NewPipeline 创建流水线
func NewPipeline(
	fetcher DocumentFetcher,
	extractor TextExtractor,
	ai AiInvoker,
	parser ReplyParser,
	publisher ResultPublisher,
	options ...PipelineOption,
) (*Pipeline, error) {
	if fetcher == nil || extractor == nil || ai == nil || parser == nil || publisher == nil {
		return nil, fmt.Errorf("流水线的必需依赖不能为空")
	}

	p := &Pipeline{
		fetcher:   fetcher,
		extractor: extractor,
		ai:        ai,
		parser:    parser,
		publisher: publisher,
	}

	for _, option := range options {
		option(p)
	}

	return p, nil
}

// Process 处理一条文档通知，走完整条链
// 返回nil表示成功事件已发布，调用方可以确认消息；
// 返回错误表示链路失败（失败事件已尽力发布），调用方应拒绝消息
func (p *Pipeline) Process(ctx context.Context, notification *storage.InboundDocumentNotification) error {
	processingID := uuid.New().String()

	ctx, span := tracer.Start(ctx, "Pipeline.Process")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("document.id", notification.DocumentID),
		attribute.String("processing.id", processingID),
	)

	log := logger.Ctx(ctx).With().
		Int64("document_id", notification.DocumentID).
		Str("processing_id", processingID).
		Logger()
	ctx = log.WithContext(ctx)

	stage := StageReceived
	log.Info().Str("stage", string(stage)).Str("subject_id", notification.SubjectID).Msg("开始处理文档")

	// FETCHING
	stage = StageFetching
	span.AddEvent("fetching document")
	data, err := p.fetcher.Fetch(ctx, notification.StoragePath)
	if err != nil {
		procErr := NewFetchError(notification.DocumentID, err.Error())
		return p.fail(ctx, span, notification, stage, procErr)
	}
	log.Debug().Str("stage", string(stage)).Int("bytes", len(data)).Msg("文档获取完成")

	// EXTRACTING_TEXT
	stage = StageExtractingText
	span.AddEvent("extracting text")
	text, err := p.extractor.ExtractText(ctx, data, notification.MimeType, notification.StoragePath)
	if err != nil {
		procErr := NewExtractError(notification.DocumentID, err.Error())
		return p.fail(ctx, span, notification, stage, procErr)
	}
	log.Debug().Str("stage", string(stage)).Int("text_length", len(text)).Msg("文本提取完成")

	p.archiveText(ctx, notification.DocumentID, processingID, text)

	// CALLING_AI
	stage = StageCallingAI
	span.AddEvent("calling ai")
	reply, err := p.ai.Invoke(ctx, text)
	if err != nil {
		procErr := NewAIError(notification.DocumentID, err.Error())
		return p.fail(ctx, span, notification, stage, procErr)
	}

	// PARSING
	stage = StageParsing
	span.AddEvent("parsing reply")
	record, warnings, err := p.parser.Parse(reply)
	if err != nil {
		procErr := NewParseError(notification.DocumentID, err.Error())
		return p.fail(ctx, span, notification, stage, procErr)
	}
	for _, w := range warnings {
		log.Warn().Str("stage", string(stage)).Msg(w)
	}

	// 流水线负责填充的字段，覆盖模型可能擅自输出的值
	record.SubjectID = notification.SubjectID
	record.DocumentID = notification.DocumentID
	record.EventKind = types.EventKindCVParsed
	record.ProcessingMetadata = &types.ProcessingMetadata{
		DocumentID:       notification.DocumentID,
		ModelIdentifier:  p.ai.ModelName(),
		ProcessedAt:      time.Now().UTC().Format(time.RFC3339),
		DetectedLanguage: record.DetectedDocumentLanguage,
	}

	// 成功事件发布失败等同于整条链失败
	if err := p.publisher.PublishSuccess(ctx, record); err != nil {
		procErr := NewPublishError(notification.DocumentID, err.Error())
		return p.fail(ctx, span, notification, StageFailed, procErr)
	}

	p.archiveRecord(ctx, notification.DocumentID, processingID, record)

	stage = StageSucceeded
	span.SetStatus(codes.Ok, "")
	log.Info().Str("stage", string(stage)).Int("warning_count", len(warnings)).Msg("文档处理成功")
	return nil
}

// fail 失败分支：记录错误、尽力发布失败事件、返回阶段错误
// 失败事件的发布结果不改变返回值，确认决策只取决于链路本身
func (p *Pipeline) fail(ctx context.Context, span trace.Span, notification *storage.InboundDocumentNotification, stage Stage, procErr error) error {
	tracing.RecordErrorWithInfo(span, procErr, errorTypeForStage(stage),
		attribute.String("pipeline.stage", string(stage)))

	logger.Ctx(ctx).Error().
		Err(procErr).
		Str("stage", string(stage)).
		Msg("文档处理失败")

	p.publishFailure(ctx, notification, procErr)
	return procErr
}

// publishFailure 尽力而为地发布失败事件，任何问题都只记日志
func (p *Pipeline) publishFailure(ctx context.Context, notification *storage.InboundDocumentNotification, procErr error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Ctx(ctx).Error().Interface("panic", r).Msg("发布失败事件时发生panic")
		}
	}()

	failure := &types.ProcessingFailureRecord{
		DocumentID:        notification.DocumentID,
		SubjectID:         notification.SubjectID,
		OriginalEventKind: notification.DocumentKind,
		ErrorMessage:      procErr.Error(),
		EventKind:         types.EventKindProcessingFailed,
		ErrorTimestamp:    time.Now().UTC(),
	}

	if err := p.publisher.PublishFailure(ctx, failure); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("发布失败事件未成功，仅记录日志")
	}
}

// errorTypeForStage 把流水线阶段映射到追踪用的错误分类
func errorTypeForStage(stage Stage) tracing.ErrorType {
	switch stage {
	case StageFetching:
		return tracing.ErrorTypeHTTP
	case StageExtractingText:
		return tracing.ErrorTypeParsing
	case StageCallingAI:
		return tracing.ErrorTypeLLM
	case StageParsing:
		return tracing.ErrorTypeParsing
	default:
		return tracing.ErrorTypeInternal
	}
}

// archiveText 旁路归档提取文本，失败只记日志
func (p *Pipeline) archiveText(ctx context.Context, documentID int64, processingID string, text string) {
	if p.archive == nil {
		return
	}
	if _, err := p.archive.ArchiveExtractedText(ctx, documentID, processingID, text); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("归档提取文本失败")
	}
}

// archiveRecord 旁路归档解析结果，失败只记日志
func (p *Pipeline) archiveRecord(ctx context.Context, documentID int64, processingID string, record *types.ParsedResumeRecord) {
	if p.archive == nil {
		return
	}
	if _, err := p.archive.ArchiveParsedRecord(ctx, documentID, processingID, record); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("归档解析结果失败")
	}
}
