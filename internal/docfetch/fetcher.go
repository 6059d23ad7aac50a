package docfetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// DocumentFetcher 文档获取器接口
type DocumentFetcher interface {
	// Fetch 按存储路径从文档服务获取文档原始字节
	Fetch(ctx context.Context, storagePath string) ([]byte, error)
}

// HTTPDocumentFetcher 基于HTTP的文档获取器
// 单次GET请求，不做内部重试：重试语义由消息重投递承担
type HTTPDocumentFetcher struct {
	// 文档服务基础URL，例如 http://document-service:8081/documents
	BaseURL string
	// HTTP客户端，可配置超时等参数
	Client *http.Client
	// 日志记录
	logger *log.Logger
}

// FetcherOption 定义配置选项函数
type FetcherOption func(*HTTPDocumentFetcher)

// WithFetcherTimeout 配置HTTP客户端超时时间
func WithFetcherTimeout(timeout time.Duration) FetcherOption {
	return func(f *HTTPDocumentFetcher) {
		f.Client.Timeout = timeout
	}
}

// WithFetcherLogger 配置自定义日志记录器
func WithFetcherLogger(logger *log.Logger) FetcherOption {
	return func(f *HTTPDocumentFetcher) {
		f.logger = logger
	}
}

// 确保HTTPDocumentFetcher实现了DocumentFetcher接口
var _ DocumentFetcher = (*HTTPDocumentFetcher)(nil)

// NewHTTPDocumentFetcher 创建文档获取器
func NewHTTPDocumentFetcher(baseURL string, options ...FetcherOption) *HTTPDocumentFetcher {
	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	fetcher := &HTTPDocumentFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
		logger:  log.New(os.Stderr, "[DocFetch] ", log.LstdFlags),
	}

	for _, option := range options {
		option(fetcher)
	}

	return fetcher
}

// Fetch 获取文档字节
// 任何非2xx响应或网络/超时错误都视为获取失败
func (f *HTTPDocumentFetcher) Fetch(ctx context.Context, storagePath string) ([]byte, error) {
	startTime := time.Now()

	url := fmt.Sprintf("%s/%s", f.BaseURL, strings.TrimLeft(storagePath, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建文档请求失败: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求文档服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 读取少量响应体帮助诊断
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("文档服务返回非2xx状态码 %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取文档内容失败: %w", err)
	}

	f.logger.Printf("文档获取完成: %s, %d 字节 (用时 %.2f秒)", storagePath, len(data), time.Since(startTime).Seconds())
	return data, nil
}
