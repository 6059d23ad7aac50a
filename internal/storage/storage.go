package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"cv-pipeline-go/internal/config"
)

// Storage 存储管理器，聚合消息队列与归档依赖
type Storage struct {
	// 消息队列
	RabbitMQ *RabbitMQ

	// 处理过程归档（可选）
	Archive *ProcessingArchive
}

// NewStorage 创建存储管理器
// RabbitMQ是处理链的主干，初始化失败直接报错；
// 归档是旁路功能，失败只降级为无归档运行
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	storage := &Storage{}

	rabbitMQ, err := NewRabbitMQ(&cfg.RabbitMQ)
	if err != nil {
		return nil, fmt.Errorf("初始化RabbitMQ失败: %w", err)
	}
	storage.RabbitMQ = rabbitMQ

	if cfg.MinIO.Enabled {
		var archiveLogger *log.Logger
		if cfg.Logger.Level == "debug" {
			archiveLogger = log.New(os.Stderr, "[Archive] ", log.LstdFlags|log.Lshortfile)
		} else {
			archiveLogger = log.New(io.Discard, "", 0)
		}

		storage.Archive, err = NewProcessingArchive(&cfg.MinIO, archiveLogger)
		if err != nil {
			log.Printf("警告: 初始化归档失败，归档功能禁用: %v", err)
			storage.Archive = nil
		}
	}

	return storage, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			log.Printf("关闭RabbitMQ连接失败: %v", err)
		}
	}
	// MinIO客户端无需显式关闭
}
