package scripttools

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"slidecast/internal/model/script"
)

var markdownFence = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*\\n(.*?)\\n\\s*```\\s*$")

// CleanJSONContent 清理模型返回的 JSON 内容
// 移除 markdown 代码块标记，并截取第一个 JSON 数组或对象
func CleanJSONContent(content string) string {
	content = strings.TrimSpace(content)
	if matches := markdownFence.FindStringSubmatch(content); len(matches) > 1 {
		content = matches[1]
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if content == "" || content[0] == '[' || content[0] == '{' {
		return content
	}
	if start := strings.Index(content, "["); start >= 0 {
		if end := strings.LastIndex(content, "]"); end > start {
			return content[start : end+1]
		}
	}
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			return content[start : end+1]
		}
	}
	return content
}

// ParseAlignmentHints 解析对齐服务返回的 JSON
// 接受 [{"id","start","end"}] 数组，或包含 segments/alignments 字段的对象
func ParseAlignmentHints(content string) ([]script.AlignmentHint, error) {
	cleaned := CleanJSONContent(content)
	if cleaned == "" {
		return nil, errors.New("empty alignment payload")
	}

	var hints []script.AlignmentHint
	if err := json.Unmarshal([]byte(cleaned), &hints); err == nil {
		return dropInvalidHints(hints), nil
	}

	var wrapped struct {
		Segments   []script.AlignmentHint `json:"segments"`
		Alignments []script.AlignmentHint `json:"alignments"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err != nil {
		return nil, fmt.Errorf("parse alignment payload: %w (snippet: %s)", err, snippet(cleaned))
	}
	hints = append(wrapped.Segments, wrapped.Alignments...)
	return dropInvalidHints(hints), nil
}

// dropInvalidHints 丢弃没有ID或时间为负的提示；缺失的行由调用方按“未知”处理
func dropInvalidHints(hints []script.AlignmentHint) []script.AlignmentHint {
	out := hints[:0]
	for _, hint := range hints {
		hint.LineID = strings.TrimSpace(hint.LineID)
		if hint.LineID == "" || hint.Start < 0 || hint.End < 0 {
			continue
		}
		out = append(out, hint)
	}
	return out
}

func snippet(s string) string {
	const limit = 120
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
