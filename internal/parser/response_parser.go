package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"cv-pipeline-go/internal/tracing"
	"cv-pipeline-go/internal/types"
)

// fencedJSONRe 匹配 ```json ... ``` 或 ``` ... ``` 代码块
var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// AiResponseParser 把模型的原始回复解析为结构化简历记录
// 纯函数式组件，无I/O，对同一输入幂等
type AiResponseParser struct{}

// NewAiResponseParser 创建解析器
func NewAiResponseParser() *AiResponseParser {
	return &AiResponseParser{}
}

// Parse 解析模型回复
// 返回解析结果、非致命的校验警告、以及致命的解析错误。
// 警告和错误互斥：能反序列化就绝不因为字段可疑而整体失败
func (p *AiResponseParser) Parse(reply string) (*types.ParsedResumeRecord, []string, error) {
	// 空回复直接判定失败
	if strings.TrimSpace(reply) == "" {
		return nil, nil, fmt.Errorf("模型回复为空")
	}

	cleaned := cleanModelReply(reply)
	jsonStr := extractJSONObject(cleaned)

	var record types.ParsedResumeRecord
	if err := json.Unmarshal([]byte(jsonStr), &record); err != nil {
		// 失败诊断只携带有界片段，不带入完整回复
		return nil, nil, fmt.Errorf("解析模型回复JSON失败: %w。回复片段: %s",
			err, tracing.SafeReplySnippet(reply))
	}

	warnings := validateAtsAnalysis(&record)
	return &record, warnings, nil
}

// cleanModelReply 剥离Markdown代码块围栏并去除首尾空白
// 同时处理带语言标记(```json)和不带标记(```)两种围栏
func cleanModelReply(reply string) string {
	trimmed := strings.TrimSpace(reply)

	if matches := fencedJSONRe.FindStringSubmatch(trimmed); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	return trimmed
}

// extractJSONObject 从清理后的文本中截取JSON对象
// 取第一个'{'到最后一个'}'（含边界）；文本本身就是完整对象时走快速路径；
// 找不到大括号时原样返回，让反序列化去报错
func extractJSONObject(cleaned string) string {
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")

	if start == -1 || end == -1 || end < start {
		// 没有对象边界，按原样解析并由调用方报告失败
		return cleaned
	}

	// 快速路径：边界恰好就是整个文本
	if start == 0 && end == len(cleaned)-1 {
		return cleaned
	}

	return cleaned[start : end+1]
}

// validateAtsAnalysis 对ATS分析结果做事后校验
// 只产生警告，不修改数值也不触发整体失败
func validateAtsAnalysis(record *types.ParsedResumeRecord) []string {
	var warnings []string

	ats := record.AtsAnalysis
	if ats == nil {
		warnings = append(warnings, "模型回复中缺少atsAnalysis")
		return warnings
	}

	if ats.OverallScore == nil {
		warnings = append(warnings, "atsAnalysis缺少overallScore")
	} else if *ats.OverallScore < 0 || *ats.OverallScore > 100 {
		warnings = append(warnings, fmt.Sprintf("overallScore超出[0,100]范围: %d", *ats.OverallScore))
	}

	if ats.ScoreBreakdown == nil {
		warnings = append(warnings, "atsAnalysis缺少scoreBreakdown")
	} else {
		bd := ats.ScoreBreakdown
		if bd.FormatScore == nil {
			warnings = append(warnings, "scoreBreakdown缺少formatScore")
		}
		if bd.ContentScore == nil {
			warnings = append(warnings, "scoreBreakdown缺少contentScore")
		}
		if bd.SkillsScore == nil {
			warnings = append(warnings, "scoreBreakdown缺少skillsScore")
		}
		if bd.ExperienceScore == nil {
			warnings = append(warnings, "scoreBreakdown缺少experienceScore")
		}
	}

	if strings.TrimSpace(string(ats.CompatibilityLevel)) == "" {
		warnings = append(warnings, "atsAnalysis缺少compatibilityLevel")
	}

	return warnings
}
