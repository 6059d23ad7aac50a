package types

import "time"

// 出站事件类型常量
const (
	// EventKindCVParsed 简历解析成功事件
	EventKindCVParsed = "CV_PARSED"
	// EventKindProcessingFailed 简历处理失败事件
	EventKindProcessingFailed = "CV_PROCESSING_FAILED"
)

// DocumentKindCV 仅此类文档会进入解析流水线，其他类型直接确认并丢弃
const DocumentKindCV = "CV"

// CompatibilityLevel ATS兼容性等级
type CompatibilityLevel string

const (
	CompatibilityExcellent CompatibilityLevel = "EXCELLENT"
	CompatibilityGood      CompatibilityLevel = "GOOD"
	CompatibilityFair      CompatibilityLevel = "FAIR"
	CompatibilityPoor      CompatibilityLevel = "POOR"
)

// PersonalInfo 候选人基本信息
type PersonalInfo struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Experience 工作经历条目
// 起止时间保留模型原样输出的自由文本（如 "2021.03"、"present"），不做日期规范化
type Experience struct {
	Company     string `json:"company,omitempty"`
	Position    string `json:"position,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Description string `json:"description,omitempty"`
}

// Education 教育经历条目
type Education struct {
	Degree      string `json:"degree,omitempty"`
	Institution string `json:"institution,omitempty"`
	Field       string `json:"field,omitempty"`
	Year        string `json:"year,omitempty"`
}

// Certification 证书条目
type Certification struct {
	Name   string `json:"name,omitempty"`
	Issuer string `json:"issuer,omitempty"`
	Date   string `json:"date,omitempty"`
}

// Language 语言能力条目
type Language struct {
	Language    string `json:"language,omitempty"`
	Proficiency string `json:"proficiency,omitempty"`
}

// ScoreBreakdown ATS评分细项
// 四个分项使用指针类型区分"模型未给出"与"给出0分"两种情况
type ScoreBreakdown struct {
	FormatScore     *int   `json:"formatScore,omitempty"`     // 0-20
	ContentScore    *int   `json:"contentScore,omitempty"`    // 0-30
	SkillsScore     *int   `json:"skillsScore,omitempty"`     // 0-25
	ExperienceScore *int   `json:"experienceScore,omitempty"` // 0-25
	Explanation     string `json:"explanation,omitempty"`
}

// AtsAnalysis ATS兼容性分析结果
type AtsAnalysis struct {
	OverallScore        *int               `json:"overallScore,omitempty"` // 0-100
	OverallAssessment   string             `json:"overallAssessment,omitempty"`
	Strengths           []string           `json:"strengths,omitempty"`
	Weaknesses          []string           `json:"weaknesses,omitempty"`
	Recommendations     []string           `json:"recommendations,omitempty"`
	ScoreBreakdown      *ScoreBreakdown    `json:"scoreBreakdown,omitempty"`
	CompatibilityLevel  CompatibilityLevel `json:"compatibilityLevel,omitempty"`
	MissingKeywords     []string           `json:"missingKeywords,omitempty"`
	ImprovementPriority string             `json:"improvementPriority,omitempty"` // HIGH/MEDIUM/LOW
}

// ProcessingMetadata 解析过程元数据，由流水线填充而非模型输出
type ProcessingMetadata struct {
	DocumentID       int64  `json:"documentId"`
	ModelIdentifier  string `json:"modelIdentifier,omitempty"`
	ProcessedAt      string `json:"processedAt,omitempty"`
	DetectedLanguage string `json:"detectedLanguage,omitempty"`
}

// ParsedResumeRecord 结构化简历提取结果，即"cv-parsed"事件的消息体
// 模型回复中出现的未知字段一律静默忽略，不会导致解析失败
type ParsedResumeRecord struct {
	SubjectID                string              `json:"subjectId,omitempty"`
	DocumentID               int64               `json:"documentId,omitempty"`
	EventKind                string              `json:"eventKind,omitempty"` // 固定为 CV_PARSED
	PersonalInfo             *PersonalInfo       `json:"personalInfo,omitempty"`
	Skills                   []string            `json:"skills,omitempty"`
	Experiences              []Experience        `json:"experiences,omitempty"`
	EducationHistory         []Education         `json:"educationHistory,omitempty"`
	Certifications           []Certification     `json:"certifications,omitempty"`
	Languages                []Language          `json:"languages,omitempty"`
	SeniorityLevel           string              `json:"seniorityLevel,omitempty"`
	YearsOfExperience        int                 `json:"yearsOfExperience,omitempty"`
	ProfileSummary           string              `json:"profileSummary,omitempty"`
	DetectedDocumentLanguage string              `json:"detectedDocumentLanguage,omitempty"`
	AtsAnalysis              *AtsAnalysis        `json:"atsAnalysis,omitempty"`
	ProcessingMetadata       *ProcessingMetadata `json:"processingMetadata,omitempty"`
}

// ProcessingFailureRecord 处理失败事件，即"processing-failed"事件的消息体
// 仅在收到消息后链路失败时创建，属于尽力而为的旁路发布
type ProcessingFailureRecord struct {
	DocumentID        int64     `json:"documentId"`
	SubjectID         string    `json:"subjectId,omitempty"`
	OriginalEventKind string    `json:"originalEventKind,omitempty"`
	ErrorMessage      string    `json:"errorMessage"`
	EventKind         string    `json:"eventKind"` // 固定为 CV_PROCESSING_FAILED
	ErrorTimestamp    time.Time `json:"errorTimestamp"`
}
