package publisher

import (
	"context"
	"fmt"

	"cv-pipeline-go/internal/logger"
	"cv-pipeline-go/internal/storage"
	"cv-pipeline-go/internal/types"
)

// ResultPublisher 把处理结果事件发布到处理事件交换机
type ResultPublisher struct {
	mq               storage.MessageQueue
	exchange         string
	parsedRoutingKey string
	failedRoutingKey string
}

// NewResultPublisher 创建发布器并确保交换机存在
func NewResultPublisher(mq storage.MessageQueue, exchange, parsedRoutingKey, failedRoutingKey string) (*ResultPublisher, error) {
	if mq == nil {
		return nil, fmt.Errorf("消息队列不能为空")
	}

	if err := mq.EnsureExchange(exchange, "topic", true); err != nil {
		return nil, fmt.Errorf("确保处理事件交换机存在失败: %w", err)
	}

	return &ResultPublisher{
		mq:               mq,
		exchange:         exchange,
		parsedRoutingKey: parsedRoutingKey,
		failedRoutingKey: failedRoutingKey,
	}, nil
}

// PublishSuccess 发布解析成功事件
// 消息持久化发布，失败会向上冒泡成整条处理链的失败
func (p *ResultPublisher) PublishSuccess(ctx context.Context, record *types.ParsedResumeRecord) error {
	if record == nil {
		return fmt.Errorf("解析结果不能为空")
	}

	if err := p.mq.PublishJSON(ctx, p.exchange, p.parsedRoutingKey, record, true); err != nil {
		return fmt.Errorf("发布解析成功事件失败: %w", err)
	}

	logger.Ctx(ctx).Info().
		Int64("document_id", record.DocumentID).
		Str("routing_key", p.parsedRoutingKey).
		Msg("已发布解析成功事件")
	return nil
}

// PublishFailure 发布处理失败事件
// 调用方按尽力而为处理返回的错误
func (p *ResultPublisher) PublishFailure(ctx context.Context, record *types.ProcessingFailureRecord) error {
	if record == nil {
		return fmt.Errorf("失败记录不能为空")
	}

	if err := p.mq.PublishJSON(ctx, p.exchange, p.failedRoutingKey, record, true); err != nil {
		return fmt.Errorf("发布处理失败事件失败: %w", err)
	}

	logger.Ctx(ctx).Info().
		Int64("document_id", record.DocumentID).
		Str("routing_key", p.failedRoutingKey).
		Msg("已发布处理失败事件")
	return nil
}
