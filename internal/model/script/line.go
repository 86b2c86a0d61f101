package script

import (
	"time"
)

// LineStatus 脚本行生命周期状态
type LineStatus string

const (
	LineStatusPending    LineStatus = "pending"    // 待生成
	LineStatusGenerating LineStatus = "generating" // 生成中
	LineStatusCompleted  LineStatus = "completed"  // 已完成
	LineStatusFailed     LineStatus = "failed"     // 失败
)

// String 返回状态的字符串表示
func (s LineStatus) String() string {
	return string(s)
}

// NeedsWork 是否仍需生成（pending 或 failed）
func (s LineStatus) NeedsWork() bool {
	return s == LineStatusPending || s == LineStatusFailed
}

// ScriptLine 脚本行实体
// 解析时按文档顺序创建，之后只由批处理控制器原地修改，从不删除
type ScriptLine struct {
	ID          string     `json:"id"`                     // 行ID（由序号派生，整个运行期间稳定）
	Index       int        `json:"index"`                  // 文档中的位置（从0开始）
	Raw         string     `json:"raw"`                    // 原始文本
	Narration   string     `json:"narration"`              // 旁白文本
	Prompt      string     `json:"prompt"`                 // 图片提示词（可为空）
	Status      LineStatus `json:"status"`                 // 状态
	Image       []byte     `json:"-"`                      // 生成的图片数据
	Filename    string     `json:"filename,omitempty"`     // 派生的文件名
	Batch       int        `json:"batch,omitempty"`        // 所属批次（凭证会话序号）
	CompletedAt *time.Time `json:"completed_at,omitempty"` // 完成时间
	Error       string     `json:"error,omitempty"`        // 最近一次错误
}

// HasImage 是否已有图片数据
func (l *ScriptLine) HasImage() bool {
	return len(l.Image) > 0
}

// Clone 复制一份快照（图片数据共享底层数组，只读使用）
func (l *ScriptLine) Clone() *ScriptLine {
	c := *l
	if l.CompletedAt != nil {
		t := *l.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// ResetToPending 回滚为待生成，清除图片与批次信息
func (l *ScriptLine) ResetToPending() {
	l.Status = LineStatusPending
	l.Image = nil
	l.Filename = ""
	l.Batch = 0
	l.CompletedAt = nil
}

// MarkGenerating 标记为生成中并清除上次错误
func (l *ScriptLine) MarkGenerating() {
	l.Status = LineStatusGenerating
	l.Error = ""
}

// MarkFailed 标记为失败
func (l *ScriptLine) MarkFailed(message string) {
	l.Status = LineStatusFailed
	l.Image = nil
	l.Filename = ""
	l.Batch = 0
	l.CompletedAt = nil
	l.Error = message
}

// MarkCompleted 标记为完成
func (l *ScriptLine) MarkCompleted(image []byte, filename string, batch int, at time.Time) {
	l.Status = LineStatusCompleted
	l.Image = image
	l.Filename = filename
	l.Batch = batch
	l.CompletedAt = &at
	l.Error = ""
}

// StatusCounts 各状态的行数
type StatusCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Generating int `json:"generating"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// CountStatuses 统计各状态的行数
func CountStatuses(lines []*ScriptLine) StatusCounts {
	counts := StatusCounts{Total: len(lines)}
	for _, line := range lines {
		switch line.Status {
		case LineStatusPending:
			counts.Pending++
		case LineStatusGenerating:
			counts.Generating++
		case LineStatusCompleted:
			counts.Completed++
		case LineStatusFailed:
			counts.Failed++
		}
	}
	return counts
}
