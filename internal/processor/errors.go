package processor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrDocumentFetchFailed = errors.New("获取文档失败")
	ErrTextExtractFailed   = errors.New("提取文档文本失败")
	ErrAIInvocationFailed  = errors.New("AI调用失败")
	ErrReplyParseFailed    = errors.New("解析模型回复失败")
	ErrResultPublishFailed = errors.New("发布解析结果失败")
)

// CVProcessError 包含详细错误信息的自定义错误
type CVProcessError struct {
	DocumentID int64
	Op         string
	BaseErr    error
	Detail     string
}

func (e *CVProcessError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 文档:%d): %s", e.BaseErr, e.Op, e.DocumentID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 文档:%d)", e.BaseErr, e.Op, e.DocumentID)
}

func (e *CVProcessError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *CVProcessError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数

func NewFetchError(documentID int64, detail string) error {
	return &CVProcessError{
		DocumentID: documentID,
		Op:         "fetch",
		BaseErr:    ErrDocumentFetchFailed,
		Detail:     detail,
	}
}

func NewExtractError(documentID int64, detail string) error {
	return &CVProcessError{
		DocumentID: documentID,
		Op:         "extract_text",
		BaseErr:    ErrTextExtractFailed,
		Detail:     detail,
	}
}

func NewAIError(documentID int64, detail string) error {
	return &CVProcessError{
		DocumentID: documentID,
		Op:         "call_ai",
		BaseErr:    ErrAIInvocationFailed,
		Detail:     detail,
	}
}

func NewParseError(documentID int64, detail string) error {
	return &CVProcessError{
		DocumentID: documentID,
		Op:         "parse_reply",
		BaseErr:    ErrReplyParseFailed,
		Detail:     detail,
	}
}

func NewPublishError(documentID int64, detail string) error {
	return &CVProcessError{
		DocumentID: documentID,
		Op:         "publish",
		BaseErr:    ErrResultPublishFailed,
		Detail:     detail,
	}
}
