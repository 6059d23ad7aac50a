package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength 默认最大属性长度
	DefaultMaxLength = 200

	// MaxReplySnippetLength 模型原始回复片段最大长度
	// 解析失败时错误里只携带该长度的片段，避免把整段回复塞进日志和错误链
	MaxReplySnippetLength = 200

	// MaxPromptLength 提示词内容最大长度
	MaxPromptLength = 300

	// MaxHeaderLength HTTP头最大长度
	MaxHeaderLength = 100

	// MaxDocumentLength 文档文本内容最大长度
	MaxDocumentLength = 150
)

// maskPIILookup 需要掩码处理的关键字映射
var maskPIILookup = map[string]bool{
	"email":    true,
	"phone":    true,
	"password": true,
	"身份证":      true,
	"id_card":  true,
	"address":  true,
	"地址":       true,
	"name":     true,
	"姓名":       true,
	"api_key":  true,
	"apikey":   true,
	"secret":   true,
	"token":    true,
	"bearer":   true,
}

// SafeAttributeValue 确保属性值安全，不包含敏感信息
// 1. 如果是敏感关键字对应的值，返回掩码处理后的值
// 2. 如果长度超过maxLength，则截断并添加省略号
func SafeAttributeValue(name string, value string, maxLength int) string {
	lowerName := strings.ToLower(name)
	for keyword := range maskPIILookup {
		if strings.Contains(lowerName, keyword) {
			return MaskPII(value)
		}
	}

	return TruncateString(value, maxLength)
}

// MaskPII 对敏感信息（个人信息、凭证）进行掩码处理
// 短值只保留首尾字符，长值保留前后各2位，中间以星号填充
func MaskPII(value string) string {
	if value == "" {
		return ""
	}

	runes := []rune(value)
	length := len(runes)

	if length <= 1 {
		return "*"
	}
	if length <= 4 {
		if length == 2 {
			return string(runes[0:1]) + "*"
		}
		return string(runes[0:1]) + strings.Repeat("*", length-2) + string(runes[length-1:])
	}

	// "sk-abcdef123456" -> "sk***********56"
	return string(runes[0:2]) + strings.Repeat("*", length-4) + string(runes[length-2:])
}

// TruncateString 截断字符串，并在截断时添加省略号
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}

	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}

	// 保留前后部分，中间用...连接
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeReplySnippet 安全处理模型回复内容，用于解析失败诊断
func SafeReplySnippet(content string) string {
	return TruncateString(content, MaxReplySnippetLength)
}

// SafePromptContent 安全处理提示词内容
func SafePromptContent(content string) string {
	return TruncateString(content, MaxPromptLength)
}

// SafeDocumentContent 安全处理文档文本内容
func SafeDocumentContent(content string) string {
	return TruncateString(content, MaxDocumentLength)
}
