package scripttools

import (
	"slidecast/internal/model/script"
)

const (
	// DefaultMinDuration 每个时间轴条目的最短时长（秒）
	DefaultMinDuration = 0.8
	// DefaultFallbackDuration 完全没有对齐提示的条目使用的时长（秒）
	DefaultFallbackDuration = 3.0
)

// TimelineNormalizer 时间轴规范化器
// 保证输出条目顺序不变、互不重叠、且每条不短于最短时长
type TimelineNormalizer struct {
	minDuration      float64
	fallbackDuration float64
}

// NewTimelineNormalizer 创建规范化器，非正值使用默认时长
func NewTimelineNormalizer(minDuration, fallbackDuration float64) *TimelineNormalizer {
	if minDuration <= 0 {
		minDuration = DefaultMinDuration
	}
	if fallbackDuration <= 0 {
		fallbackDuration = DefaultFallbackDuration
	}
	return &TimelineNormalizer{
		minDuration:      minDuration,
		fallbackDuration: fallbackDuration,
	}
}

// MinDuration 最短时长
func (n *TimelineNormalizer) MinDuration() float64 { return n.minDuration }

// FallbackDuration 无提示时的时长
func (n *TimelineNormalizer) FallbackDuration() float64 { return n.fallbackDuration }

// Normalize 从左到右单次扫描，返回新的条目切片，不修改入参
//   - 开始时间早于上一条结束时间时，上调到上一条结束时间（不重排）
//   - 时长不足最短时长时：原始结束时间为 0（没有任何提示）取 fallback 时长，否则取最短时长
func (n *TimelineNormalizer) Normalize(entries []script.TimelineEntry) []script.TimelineEntry {
	out := make([]script.TimelineEntry, len(entries))
	lastEnd := 0.0

	for i, entry := range entries {
		originalEnd := entry.End

		if entry.Start < lastEnd {
			entry.Start = lastEnd
		}

		if entry.End-entry.Start < n.minDuration {
			if originalEnd == 0 {
				entry.End = entry.Start + n.fallbackDuration
			} else {
				entry.End = entry.Start + n.minDuration
			}
		}

		lastEnd = entry.End
		out[i] = entry
	}

	return out
}

// SelectAlignable 选出可参与对齐的行：状态为 completed 且有图片数据，保持文档顺序
func SelectAlignable(lines []*script.ScriptLine) []*script.ScriptLine {
	var selected []*script.ScriptLine
	for _, line := range lines {
		if line.Status == script.LineStatusCompleted && line.HasImage() {
			selected = append(selected, line)
		}
	}
	return selected
}

// BuildTimeline 将对齐提示按行ID匹配到所选行，缺失的提示视为 start=end=0
func BuildTimeline(lines []*script.ScriptLine, hints []script.AlignmentHint) []script.TimelineEntry {
	byID := make(map[string]script.AlignmentHint, len(hints))
	for _, hint := range hints {
		if _, exists := byID[hint.LineID]; !exists {
			byID[hint.LineID] = hint
		}
	}

	entries := make([]script.TimelineEntry, 0, len(lines))
	for _, line := range lines {
		hint := byID[line.ID]
		entries = append(entries, script.TimelineEntry{
			LineID:    line.ID,
			Start:     hint.Start,
			End:       hint.End,
			Text:      line.Narration,
			ImageName: line.Filename,
			Image:     line.Image,
		})
	}
	return entries
}

// TimelineDuration 时间轴总时长（最后一条的结束时间）
func TimelineDuration(entries []script.TimelineEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	return entries[len(entries)-1].End
}
