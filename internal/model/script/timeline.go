package script

// TimelineEntry 时间轴条目
// 由已完成的脚本行在对齐时创建，规范化后不可变，仅供渲染使用
type TimelineEntry struct {
	LineID    string  `json:"line_id"`    // 来源脚本行ID
	Start     float64 `json:"start"`      // 开始时间（秒）
	End       float64 `json:"end"`        // 结束时间（秒）
	Text      string  `json:"text"`       // 显示文本（旁白）
	ImageName string  `json:"image_name"` // 图片文件名
	Image     []byte  `json:"-"`          // 图片数据
}

// Duration 条目时长（秒）
func (e TimelineEntry) Duration() float64 {
	return e.End - e.Start
}

// AlignmentHint 对齐服务返回的单行时间提示，可能缺失或互相矛盾
type AlignmentHint struct {
	LineID string  `json:"id"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
}

// Audio 旁白音频
type Audio struct {
	Filename string `json:"filename"`  // 原始文件名
	MIMEType string `json:"mime_type"` // 如 audio/mpeg
	Data     []byte `json:"-"`         // 编码后的音频数据
}
