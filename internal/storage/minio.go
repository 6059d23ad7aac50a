package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"cv-pipeline-go/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

// ProcessingArchive 处理过程归档
// 保存每个文档的提取文本和解析结果JSON，纯旁路功能：
// 归档失败只记日志，绝不影响处理链的成败
type ProcessingArchive struct {
	client              *minio.Client
	cfg                 *config.MinIOConfig
	extractedTextBucket string
	parsedRecordBucket  string
	logger              *log.Logger
}

// NewProcessingArchive 创建归档客户端
func NewProcessingArchive(cfg *config.MinIOConfig, logger *log.Logger) (*ProcessingArchive, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		logger.Printf("[Archive] Initialization failed: %v", err)
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	a := &ProcessingArchive{
		client:              client,
		cfg:                 cfg,
		extractedTextBucket: cfg.ExtractedTextBucket,
		parsedRecordBucket:  cfg.ParsedRecordBucket,
		logger:              logger,
	}

	// 确保存储桶存在
	if err := a.ensureBucketExists(a.extractedTextBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保提取文本存储桶 %s 存在失败: %w", a.extractedTextBucket, err)
	}
	if err := a.ensureBucketExists(a.parsedRecordBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保解析结果存储桶 %s 存在失败: %w", a.parsedRecordBucket, err)
	}

	// 设置生命周期规则
	if cfg.ArchiveExpireDays > 0 {
		if err := a.setupLifecycleRules(context.Background()); err != nil {
			logger.Printf("[Archive] Warning: Failed to set up lifecycle rules: %v", err)
		}
	}

	logger.Printf("[Archive] Client initialized for endpoint: %s", cfg.Endpoint)
	return a, nil
}

// ensureBucketExists 确保存储桶存在
func (a *ProcessingArchive) ensureBucketExists(bucketName, location string) error {
	exists, err := a.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		a.logger.Printf("[Archive] Bucket %s does not exist, attempting to create...", bucketName)
		if err := a.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
	}
	return nil
}

// setupLifecycleRules 为两个归档桶设置过期规则
func (a *ProcessingArchive) setupLifecycleRules(ctx context.Context) error {
	if err := a.setupBucketLifecycle(ctx, a.extractedTextBucket, "expire-extracted-text", a.cfg.ArchiveExpireDays); err != nil {
		return fmt.Errorf("为提取文本存储桶 %s 设置生命周期失败: %w", a.extractedTextBucket, err)
	}
	if err := a.setupBucketLifecycle(ctx, a.parsedRecordBucket, "expire-parsed-records", a.cfg.ArchiveExpireDays); err != nil {
		return fmt.Errorf("为解析结果存储桶 %s 设置生命周期失败: %w", a.parsedRecordBucket, err)
	}
	return nil
}

// setupBucketLifecycle 为指定存储桶设置生命周期规则
func (a *ProcessingArchive) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lcConfig := lifecycle.NewConfiguration()
	lcConfig.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}

	if err := a.client.SetBucketLifecycle(ctx, bucketName, lcConfig); err != nil {
		return err
	}
	a.logger.Printf("[Archive] Lifecycle rule set for bucket %s: %d days", bucketName, expiryDays)
	return nil
}

// ArchiveExtractedText 归档某次处理提取出的文档文本
// 对象键按 documentID/processingID 组织，便于按文档回溯历次处理
func (a *ProcessingArchive) ArchiveExtractedText(ctx context.Context, documentID int64, processingID string, text string) (string, error) {
	objectName := fmt.Sprintf("%d/%s.txt", documentID, processingID)
	data := []byte(text)

	_, err := a.client.PutObject(ctx, a.extractedTextBucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		return "", fmt.Errorf("归档提取文本失败: %w", err)
	}

	return fmt.Sprintf("%s/%s", a.extractedTextBucket, objectName), nil
}

// ArchiveParsedRecord 归档解析成功的结构化结果
func (a *ProcessingArchive) ArchiveParsedRecord(ctx context.Context, documentID int64, processingID string, record interface{}) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("序列化解析结果失败: %w", err)
	}

	objectName := fmt.Sprintf("%d/%s.json", documentID, processingID)
	_, err = a.client.PutObject(ctx, a.parsedRecordBucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("归档解析结果失败: %w", err)
	}

	return fmt.Sprintf("%s/%s", a.parsedRecordBucket, objectName), nil
}
