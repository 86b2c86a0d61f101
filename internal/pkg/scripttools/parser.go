package scripttools

import (
	"fmt"
	"strings"

	"slidecast/internal/model/script"
	"slidecast/internal/pkg/apperr"
)

// FieldDelimiter 旁白与图片提示词之间的分隔符
const FieldDelimiter = "|"

// ErrEmptyScript 解析后没有任何有效行
const ErrEmptyScript = "empty or invalid format"

// LineID 由行序号（从0开始）派生稳定的行ID
func LineID(index int) string {
	return fmt.Sprintf("line-%04d", index+1)
}

// ParseScript 将按行分隔的脚本解析为有序的脚本行
// 空行被丢弃；每行在第一个分隔符处拆分为旁白和提示词，无分隔符时整行为旁白
func ParseScript(raw string) ([]*script.ScriptLine, error) {
	raw = strings.TrimPrefix(raw, "\ufeff")

	var lines []*script.ScriptLine
	for _, text := range strings.Split(raw, "\n") {
		text = strings.TrimSpace(strings.TrimSuffix(text, "\r"))
		if text == "" {
			continue
		}

		narration, prompt := SplitLine(text)
		index := len(lines)
		lines = append(lines, &script.ScriptLine{
			ID:        LineID(index),
			Index:     index,
			Raw:       text,
			Narration: narration,
			Prompt:    prompt,
			Status:    script.LineStatusPending,
		})
	}

	if len(lines) == 0 {
		return nil, apperr.Parse(ErrEmptyScript)
	}
	return lines, nil
}

// SplitLine 在第一个分隔符处拆分一行
func SplitLine(text string) (narration, prompt string) {
	before, after, found := strings.Cut(text, FieldDelimiter)
	if !found {
		return strings.TrimSpace(text), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}
