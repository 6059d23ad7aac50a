package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"cv-pipeline-go/internal/logger"
	"cv-pipeline-go/internal/ratelimit"
	"cv-pipeline-go/internal/tracing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	defaultEndpointPath = "/chat/completions"
	defaultModelName    = "qwen-plus"
)

// --- OpenAI Compatible Request/Response Structures ---

type OpenAIChatCompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []*schema.Message `json:"messages"` // Eino schema.Message is compatible enough for role/content
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
}

type OpenAIMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type OpenAIChatChoice struct {
	Index        int           `json:"index"`
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type OpenAICompletionResponse struct {
	Id      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []OpenAIChatChoice `json:"choices"`
}

// OpenAICompatibleChatModel 实现 model.ChatModel 接口，
// 对接任意OpenAI兼容的chat completion端点（通义千问、DeepSeek等）。
// 单次调用不重试，重试语义由消息重投递承担。
type OpenAICompatibleChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string // 完整端点URL: baseURL + endpointPath
	maxTokens   int
	temperature float64
	httpClient  *http.Client
	limiter     *ratelimit.TokenBucket // 可选的QPM限流器
}

// ChatModelConfig OpenAI兼容模型的构造配置
type ChatModelConfig struct {
	APIKey         string
	ModelName      string
	BaseURL        string // 例如 "https://dashscope.aliyuncs.com/compatible-mode/v1"
	EndpointPath   string // 例如 "/chat/completions"
	MaxTokens      int
	Temperature    float64
	ConnectTimeout time.Duration // TCP连接超时
	ReadTimeout    time.Duration // 整个请求的超时
	QPM            int           // 每分钟请求数，0表示不限流
}

// NewOpenAICompatibleChatModel 创建一个新的OpenAI兼容模型客户端
func NewOpenAICompatibleChatModel(cfg ChatModelConfig) (*OpenAICompatibleChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("API 基础URL不能为空")
	}

	mn := cfg.ModelName
	if strings.TrimSpace(mn) == "" {
		mn = defaultModelName
	}

	ep := cfg.EndpointPath
	if strings.TrimSpace(ep) == "" {
		ep = defaultEndpointPath
	}

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 90 * time.Second
	}

	// 连接超时走Dialer，整个请求的超时走Client.Timeout
	httpClient := &http.Client{
		Timeout: readTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
		},
	}

	var limiter *ratelimit.TokenBucket
	if cfg.QPM > 0 {
		limiter = ratelimit.NewTokenBucket(cfg.QPM, 0)
	}

	apiURL := strings.TrimRight(cfg.BaseURL, "/") + ep

	logger.Info().
		Str("api_url", apiURL).
		Str("model", mn).
		Str("api_key", tracing.MaskPII(cfg.APIKey)).
		Msg("初始化OpenAI兼容LLM客户端")

	return &OpenAICompatibleChatModel{
		apiKey:      cfg.APIKey,
		modelName:   mn,
		apiURL:      apiURL,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  httpClient,
		limiter:     limiter,
	}, nil
}

// Generate 实现 model.ChatModel 接口
func (m *OpenAICompatibleChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	for _, opt := range options {
		_ = opt // 本实现的参数在构造时固定，调用期选项暂不处理
	}

	// QPM限流：在真正发出请求前等令牌
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("等待限流令牌失败: %w", err)
		}
	}

	reqPayload := OpenAIChatCompletionRequest{
		Model:       m.modelName,
		Messages:    messages,
		MaxTokens:   m.maxTokens,
		Temperature: m.temperature,
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	logger.Debug().
		Str("api_url", m.apiURL).
		Str("model", m.modelName).
		Int("message_count", len(messages)).
		Msg("发送chat completion请求")

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		// 错误信息里不会出现Authorization头，但统一走一遍脱敏以防URL带凭证
		return nil, fmt.Errorf("发送 HTTP 请求失败: %s", tracing.SafeAttributeValue("error", err.Error(), tracing.DefaultMaxLength))
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API 请求失败，状态 %s: %s", httpResp.Status, tracing.TruncateString(string(bodyBytes), tracing.DefaultMaxLength))
	}

	var openAIResp OpenAICompletionResponse
	if err := json.Unmarshal(bodyBytes, &openAIResp); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w。响应体: %s", err, tracing.TruncateString(string(bodyBytes), tracing.DefaultMaxLength))
	}

	if len(openAIResp.Choices) == 0 {
		return nil, fmt.Errorf("从 API 收到空选项: %s", tracing.TruncateString(string(bodyBytes), tracing.DefaultMaxLength))
	}

	// 只消费第一个choice的message content
	apiMessage := openAIResp.Choices[0].Message
	responseContent := ""
	if apiMessage.Content != nil {
		responseContent = *apiMessage.Content
	}

	resultMessage := &schema.Message{
		Role:    schema.RoleType(apiMessage.Role),
		Content: responseContent,
	}
	if resultMessage.Role == "" {
		resultMessage.Role = schema.Assistant
	}

	logger.Debug().
		Str("model", openAIResp.Model).
		Int("content_length", len(responseContent)).
		Str("finish_reason", openAIResp.Choices[0].FinishReason).
		Msg("收到chat completion响应")

	return resultMessage, nil
}

// Stream 实现 model.ChatModel 接口 (placeholder)
func (m *OpenAICompatibleChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("OpenAICompatibleChatModel 的 Stream 方法未实现")
}

// BindTools 实现 model.ChatModel 接口
// 本流水线的提取调用不使用工具
func (m *OpenAICompatibleChatModel) BindTools(tools []*schema.ToolInfo) error {
	if len(tools) > 0 {
		return fmt.Errorf("OpenAICompatibleChatModel 不支持工具调用")
	}
	return nil
}

var _ model.ChatModel = (*OpenAICompatibleChatModel)(nil)
