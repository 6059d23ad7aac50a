package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cv-pipeline-go/internal/config"
	"cv-pipeline-go/internal/consumer"
	"cv-pipeline-go/internal/docfetch"
	"cv-pipeline-go/internal/llm"
	"cv-pipeline-go/internal/logger"
	"cv-pipeline-go/internal/parser"
	"cv-pipeline-go/internal/processor"
	"cv-pipeline-go/internal/publisher"
	"cv-pipeline-go/internal/storage"

	"github.com/spf13/pflag"
)

func main() {
	var configPath string
	var genSampleConfig bool
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.BoolVar(&genSampleConfig, "gen-config", false, "生成示例配置文件后退出")
	pflag.Parse()

	if genSampleConfig {
		if err := config.CreateSampleConfig("config.yaml"); err != nil {
			fmt.Fprintf(os.Stderr, "生成示例配置失败: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// 1. 加载并校验配置，缺必填项立即退出
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置文件失败: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("配置校验失败")
	}

	// 2. 初始化存储管理器
	ctx := context.Background()
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储管理器失败")
	}
	defer storageManager.Close()

	// 3. 组装处理流水线
	pipeline, err := buildPipeline(ctx, cfg, storageManager)
	if err != nil {
		logger.Fatal().Err(err).Msg("组装处理流水线失败")
	}

	// 4. 启动消费者
	docConsumer, err := consumer.NewConsumer(storageManager.RabbitMQ, pipeline, &cfg.RabbitMQ)
	if err != nil {
		logger.Fatal().Err(err).Msg("创建消费者失败")
	}
	if err := docConsumer.Start(); err != nil {
		logger.Fatal().Err(err).Msg("启动消费者失败")
	}
	defer docConsumer.Stop()

	logger.Info().Msg("CV处理流水线已启动")

	// 5. 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("收到退出信号，正在关闭")
}

// buildPipeline 按配置组装流水线的各个组件
func buildPipeline(ctx context.Context, cfg *config.Config, storageManager *storage.Storage) (*processor.Pipeline, error) {
	fetcher := docfetch.NewHTTPDocumentFetcher(
		cfg.DocumentService.BaseURL,
		docfetch.WithFetcherTimeout(time.Duration(cfg.DocumentService.TimeoutSeconds)*time.Second),
	)

	textExtractor, err := parser.NewDocumentTextExtractor(ctx)
	if err != nil {
		return nil, fmt.Errorf("创建文本提取器失败: %w", err)
	}

	chatModel, err := llm.NewOpenAICompatibleChatModel(llm.ChatModelConfig{
		APIKey:         cfg.AI.APIKey,
		ModelName:      cfg.AI.Model,
		BaseURL:        cfg.AI.APIURL,
		EndpointPath:   cfg.AI.Endpoint,
		MaxTokens:      cfg.AI.MaxTokens,
		Temperature:    cfg.AI.Temperature,
		ConnectTimeout: time.Duration(cfg.AI.ConnectTimeoutMS) * time.Millisecond,
		ReadTimeout:    time.Duration(cfg.AI.ReadTimeoutMS) * time.Millisecond,
		QPM:            cfg.AI.QPM,
	})
	if err != nil {
		return nil, fmt.Errorf("创建LLM客户端失败: %w", err)
	}

	cvExtractor, err := parser.NewCVExtractor(chatModel, cfg.AI.Model)
	if err != nil {
		return nil, fmt.Errorf("创建简历提取器失败: %w", err)
	}

	resultPublisher, err := publisher.NewResultPublisher(
		storageManager.RabbitMQ,
		cfg.RabbitMQ.ProcessingEventsExchange,
		cfg.RabbitMQ.ParsedRoutingKey,
		cfg.RabbitMQ.FailedRoutingKey,
	)
	if err != nil {
		return nil, fmt.Errorf("创建结果发布器失败: %w", err)
	}

	var options []processor.PipelineOption
	if storageManager.Archive != nil {
		options = append(options, processor.WithArchive(storageManager.Archive))
	}

	return processor.NewPipeline(
		fetcher,
		textExtractor,
		cvExtractor,
		parser.NewAiResponseParser(),
		resultPublisher,
		options...,
	)
}
