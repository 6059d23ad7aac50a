package storage

import "time"

// InboundDocumentNotification 文档上传事件的消息体
// 字段可能缺失或畸形，消费端解码失败时按不可恢复处理
type InboundDocumentNotification struct {
	DocumentID   int64     `json:"documentId"`
	SubjectID    string    `json:"subjectId"`
	DocumentKind string    `json:"documentKind"` // 仅 "CV" 进入流水线
	StoragePath  string    `json:"storagePath"`  // 文档服务下载路径
	MimeType     string    `json:"mimeType"`
	OccurredAt   time.Time `json:"occurredAt"`
}
