package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"cv-pipeline-go/internal/config"
	"cv-pipeline-go/internal/logger"
	"cv-pipeline-go/internal/storage"
	"cv-pipeline-go/internal/types"

	"github.com/panjf2000/ants/v2"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Acknowledger 对单条投递的确认决策
// 抽象出来是为了把确认逻辑与broker解耦，便于测试
type Acknowledger interface {
	// Ack 确认消息，broker将其移除
	Ack() error
	// Reject 拒绝消息且不重新入队，交给死信配置处置
	Reject() error
}

// deliveryAcker 把amqp.Delivery适配成Acknowledger
type deliveryAcker struct {
	delivery amqp.Delivery
}

func (a *deliveryAcker) Ack() error {
	return a.delivery.Ack(false)
}

func (a *deliveryAcker) Reject() error {
	return a.delivery.Nack(false, false)
}

// guardedAcker 幂等确认守卫：一条投递恰好产生一次ack或reject，
// 后续调用一律忽略
type guardedAcker struct {
	inner Acknowledger
	done  atomic.Bool
}

func newGuardedAcker(inner Acknowledger) *guardedAcker {
	return &guardedAcker{inner: inner}
}

func (g *guardedAcker) Ack() error {
	if !g.done.CompareAndSwap(false, true) {
		return nil
	}
	return g.inner.Ack()
}

func (g *guardedAcker) Reject() error {
	if !g.done.CompareAndSwap(false, true) {
		return nil
	}
	return g.inner.Reject()
}

// Processor 处理一条文档通知的完整链路
type Processor interface {
	Process(ctx context.Context, notification *storage.InboundDocumentNotification) error
}

// Consumer 文档上传事件消费者
// 每条投递提交到有界工作池执行，确认与整条处理链的结果绑定
type Consumer struct {
	mq             *storage.RabbitMQ
	pipeline       Processor
	pool           *ants.Pool
	cfg            *config.RabbitMQConfig
	processTimeout time.Duration
	stopCh         <-chan struct{}
}

// ConsumerOption 消费者配置选项
type ConsumerOption func(*Consumer)

// WithProcessTimeout 配置单条消息的整体处理超时
func WithProcessTimeout(timeout time.Duration) ConsumerOption {
	return func(c *Consumer) {
		c.processTimeout = timeout
	}
}

// NewConsumer 创建消费者
func NewConsumer(mq *storage.RabbitMQ, pipeline Processor, cfg *config.RabbitMQConfig, options ...ConsumerOption) (*Consumer, error) {
	if mq == nil {
		return nil, fmt.Errorf("消息队列不能为空")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("处理流水线不能为空")
	}
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}

	workers := cfg.ConsumerWorkers
	if workers <= 0 {
		workers = cfg.PrefetchCount
	}
	if workers <= 0 {
		workers = 1
	}

	pool, err := ants.NewPool(workers, ants.WithNonblocking(false))
	if err != nil {
		return nil, fmt.Errorf("创建工作池失败: %w", err)
	}

	c := &Consumer{
		mq:             mq,
		pipeline:       pipeline,
		pool:           pool,
		cfg:            cfg,
		processTimeout: 5 * time.Minute,
	}

	for _, option := range options {
		option(c)
	}

	return c, nil
}

// Start 声明拓扑并开始消费
func (c *Consumer) Start() error {
	if err := c.mq.EnsureExchange(c.cfg.DocumentEventsExchange, "topic", true); err != nil {
		return err
	}
	if err := c.mq.EnsureQueue(c.cfg.DocumentUploadedQueue, true); err != nil {
		return err
	}
	if err := c.mq.BindQueue(c.cfg.DocumentUploadedQueue, c.cfg.DocumentEventsExchange, c.cfg.UploadedRoutingKey); err != nil {
		return err
	}

	stopCh, err := c.mq.StartDeliveryConsumer(c.cfg.DocumentUploadedQueue, c.cfg.PrefetchCount, c.handleDelivery)
	if err != nil {
		return fmt.Errorf("启动消费者失败: %w", err)
	}

	c.stopCh = stopCh
	logger.Info().
		Str("queue", c.cfg.DocumentUploadedQueue).
		Int("prefetch", c.cfg.PrefetchCount).
		Int("workers", c.pool.Cap()).
		Msg("文档事件消费者已启动")
	return nil
}

// handleDelivery 把投递提交到工作池
// 预取数量与池容量对齐，Submit阻塞时相当于背压
func (c *Consumer) handleDelivery(delivery amqp.Delivery) {
	err := c.pool.Submit(func() {
		c.Handle(delivery.Body, newGuardedAcker(&deliveryAcker{delivery: delivery}))
	})
	if err != nil {
		logger.Error().Err(err).Msg("提交任务到工作池失败，消息重新入队")
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			logger.Error().Err(nackErr).Msg("重新入队失败")
		}
	}
}

// Handle 处理一条投递的消息体，保证恰好一次确认决策
func (c *Consumer) Handle(body []byte, acker Acknowledger) {
	var notification storage.InboundDocumentNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		// 畸形消息无法恢复，重投递也不会变好
		logger.Error().Err(err).Msg("解码文档通知失败，拒绝消息")
		if rejectErr := acker.Reject(); rejectErr != nil {
			logger.Error().Err(rejectErr).Msg("拒绝消息失败")
		}
		return
	}

	// 非CV类文档不属于本流水线，直接确认丢弃
	if notification.DocumentKind != types.DocumentKindCV {
		logger.Debug().
			Int64("document_id", notification.DocumentID).
			Str("document_kind", notification.DocumentKind).
			Msg("忽略非CV类文档")
		if ackErr := acker.Ack(); ackErr != nil {
			logger.Error().Err(ackErr).Msg("确认消息失败")
		}
		return
	}

	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background()), c.processTimeout)
	defer cancel()

	if err := c.pipeline.Process(ctx, &notification); err != nil {
		// 失败事件已由流水线尽力发布，这里只负责拒绝
		if rejectErr := acker.Reject(); rejectErr != nil {
			logger.Error().Err(rejectErr).Int64("document_id", notification.DocumentID).Msg("拒绝消息失败")
		}
		return
	}

	if ackErr := acker.Ack(); ackErr != nil {
		logger.Error().Err(ackErr).Int64("document_id", notification.DocumentID).Msg("确认消息失败")
	}
}

// Stop 停止消费并释放工作池
func (c *Consumer) Stop() {
	c.pool.Release()
	logger.Info().Msg("文档事件消费者已停止")
}

// StopChannel 返回底层消费循环的停止通道
func (c *Consumer) StopChannel() <-chan struct{} {
	return c.stopCh
}
