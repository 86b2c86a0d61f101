package slideshow

import (
	"time"

	"slidecast/internal/model/script"
	httputil "slidecast/internal/pkg/http"
)

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// LineInfo 脚本行 DTO
type LineInfo struct {
	ID          string `json:"id"`                     // 行ID
	Index       int    `json:"index"`                  // 文档位置
	Narration   string `json:"narration"`              // 旁白文本
	Prompt      string `json:"prompt"`                 // 图片提示词
	Status      string `json:"status"`                 // 状态
	Filename    string `json:"filename,omitempty"`     // 图片文件名
	Batch       int    `json:"batch,omitempty"`        // 所属批次
	CompletedAt string `json:"completed_at,omitempty"` // 完成时间
	Error       string `json:"error,omitempty"`        // 最近一次错误
	ImageBytes  int    `json:"image_bytes,omitempty"`  // 图片大小
}

// toLineInfo 将 ScriptLine 转换为 LineInfo DTO
func toLineInfo(line *script.ScriptLine) LineInfo {
	info := LineInfo{
		ID:         line.ID,
		Index:      line.Index,
		Narration:  line.Narration,
		Prompt:     line.Prompt,
		Status:     line.Status.String(),
		Filename:   line.Filename,
		Batch:      line.Batch,
		Error:      line.Error,
		ImageBytes: len(line.Image),
	}
	if line.CompletedAt != nil {
		info.CompletedAt = line.CompletedAt.Format(time.RFC3339)
	}
	return info
}

func toLineInfoList(lines []*script.ScriptLine) []LineInfo {
	list := make([]LineInfo, len(lines))
	for i, line := range lines {
		list[i] = toLineInfo(line)
	}
	return list
}

// TimelineInfo 时间轴条目 DTO
type TimelineInfo struct {
	LineID    string  `json:"line_id"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Text      string  `json:"text"`
	ImageName string  `json:"image_name"`
}

func toTimelineInfoList(entries []script.TimelineEntry) []TimelineInfo {
	list := make([]TimelineInfo, len(entries))
	for i, e := range entries {
		list[i] = TimelineInfo{
			LineID:    e.LineID,
			Start:     e.Start,
			End:       e.End,
			Text:      e.Text,
			ImageName: e.ImageName,
		}
	}
	return list
}
