package parser

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
)

// TextExtractor 文档文本提取接口
type TextExtractor interface {
	// ExtractText 从文档字节中提取纯文本，mimeType决定提取方式
	ExtractText(ctx context.Context, data []byte, mimeType string, uri string) (string, error)
}

// DocumentTextExtractor 按MIME类型分发的文本提取器
// PDF走Eino解析器，纯文本类型直接透传
type DocumentTextExtractor struct {
	pdfParser *pdf.PDFParser
	logger    *log.Logger
}

// TextExtractorOption 配置选项函数
type TextExtractorOption func(*DocumentTextExtractor)

// WithExtractorLogger 配置自定义日志记录器
func WithExtractorLogger(logger *log.Logger) TextExtractorOption {
	return func(e *DocumentTextExtractor) {
		e.logger = logger
	}
}

// 确保DocumentTextExtractor实现了TextExtractor接口
var _ TextExtractor = (*DocumentTextExtractor)(nil)

// NewDocumentTextExtractor 初始化文本提取器
// PDF解析配置为不按页面分割，以获取整个文档的连续文本
func NewDocumentTextExtractor(ctx context.Context, options ...TextExtractorOption) (*DocumentTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false, // 整个PDF的文本作为单个字符串
	})
	if err != nil {
		return nil, fmt.Errorf("创建PDF解析器失败: %w", err)
	}

	extractor := &DocumentTextExtractor{
		pdfParser: p,
		logger:    log.New(os.Stderr, "[文本提取] ", log.LstdFlags),
	}

	for _, option := range options {
		option(extractor)
	}

	return extractor, nil
}

// ExtractText 提取文档文本
func (e *DocumentTextExtractor) ExtractText(ctx context.Context, data []byte, mimeType string, uri string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("文档内容为空")
	}

	mt := strings.ToLower(strings.TrimSpace(mimeType))
	// 去掉 "text/plain; charset=utf-8" 之类的参数部分
	if idx := strings.Index(mt, ";"); idx >= 0 {
		mt = strings.TrimSpace(mt[:idx])
	}

	switch {
	case mt == "application/pdf":
		return e.extractFromPDF(ctx, data, uri)
	case strings.HasPrefix(mt, "text/"):
		if !utf8.Valid(data) {
			return "", fmt.Errorf("文本文档不是有效的UTF-8编码: %s", uri)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("不支持的文档类型: %s", mimeType)
	}
}

// extractFromPDF 用Eino PDF解析器提取文本
func (e *DocumentTextExtractor) extractFromPDF(ctx context.Context, data []byte, uri string) (string, error) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docs, err := e.pdfParser.Parse(ctx, bytes.NewReader(data),
		einoParser.WithURI(uri),
	)

	duration := time.Since(startTime)
	if err != nil {
		e.logger.Printf("PDF文本提取失败: %s (用时 %.2f秒)", err, duration.Seconds())
		return "", fmt.Errorf("PDF解析失败 (URI %s): %w", uri, err)
	}

	if len(docs) == 0 {
		return "", fmt.Errorf("PDF解析无结果 (URI %s)", uri)
	}

	// 合并所有文档的内容（以防万一返回了多个）
	var sb strings.Builder
	for i, doc := range docs {
		sb.WriteString(doc.Content)
		if i < len(docs)-1 {
			sb.WriteString("\n\n")
		}
	}

	text := sb.String()
	e.logger.Printf("PDF文本提取完成: %d 个字符 (用时 %.2f秒)", len(text), duration.Seconds())
	return text, nil
}
