package slideshow

import (
	"sync"
	"time"

	"slidecast/internal/model/script"
	"slidecast/internal/pkg/apperr"
	"slidecast/internal/pkg/id"
	"slidecast/internal/pkg/scripttools"
)

// Project 一次会话的工作区：脚本行、音频、时间轴和最近的渲染产物
// 批处理控制器写入行状态，HTTP 读取快照，因此所有访问都经过锁
type Project struct {
	ID        string
	CreatedAt time.Time

	mu         sync.RWMutex
	lines      []*script.ScriptLine
	audio      *script.Audio
	timeline   []script.TimelineEntry
	video      *scripttools.Artifact
	lastReport *RunReport
}

// ProjectView 项目概览
type ProjectView struct {
	ID         string              `json:"id"`
	CreatedAt  time.Time           `json:"created_at"`
	Counts     script.StatusCounts `json:"counts"`
	HasAudio   bool                `json:"has_audio"`
	AudioName  string              `json:"audio_name,omitempty"`
	Timeline   int                 `json:"timeline_entries"`
	HasVideo   bool                `json:"has_video"`
	LastReport *RunReport          `json:"last_report,omitempty"`
}

// NewProject 用解析好的脚本行创建项目
func NewProject(lines []*script.ScriptLine) *Project {
	return &Project{
		ID:        id.Short(),
		CreatedAt: time.Now(),
		lines:     lines,
	}
}

// Len 行数
func (p *Project) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.lines)
}

// Line 单行快照
func (p *Project) Line(index int) (*script.ScriptLine, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if index < 0 || index >= len(p.lines) {
		return nil, apperr.NotFound("line not found")
	}
	return p.lines[index].Clone(), nil
}

// Lines 所有行的快照，按文档顺序
func (p *Project) Lines() []*script.ScriptLine {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*script.ScriptLine, len(p.lines))
	for i, line := range p.lines {
		out[i] = line.Clone()
	}
	return out
}

// Counts 各状态行数
func (p *Project) Counts() script.StatusCounts {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return script.CountStatuses(p.lines)
}

// FirstNeedingWork 第一个 pending 或 failed 的行，没有时返回 -1
func (p *Project) FirstNeedingWork() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i, line := range p.lines {
		if line.Status.NeedsWork() {
			return i
		}
	}
	return -1
}

// mutate 在写锁内修改一行并返回修改后的快照
func (p *Project) mutate(index int, fn func(line *script.ScriptLine)) *script.ScriptLine {
	p.mu.Lock()
	defer p.mu.Unlock()
	line := p.lines[index]
	fn(line)
	return line.Clone()
}

// ResetLine 把一行重置为 pending，供操作者重新生成
// 生成中的行不允许重置
func (p *Project) ResetLine(index int) (*script.ScriptLine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.lines) {
		return nil, apperr.NotFound("line not found")
	}
	line := p.lines[index]
	if line.Status == script.LineStatusGenerating {
		return nil, apperr.Conflict("line is being generated")
	}
	line.ResetToPending()
	line.Error = ""
	return line.Clone(), nil
}

// SetAudio 设置旁白音频；已有的时间轴随之失效
func (p *Project) SetAudio(audio script.Audio) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.audio = &audio
	p.timeline = nil
}

// Audio 当前音频
func (p *Project) Audio() (script.Audio, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.audio == nil {
		return script.Audio{}, false
	}
	return *p.audio, true
}

// SetTimeline 保存对齐后的时间轴
func (p *Project) SetTimeline(entries []script.TimelineEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeline = append([]script.TimelineEntry(nil), entries...)
}

// Timeline 时间轴快照
func (p *Project) Timeline() []script.TimelineEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]script.TimelineEntry(nil), p.timeline...)
}

// SetVideo 保存最近一次渲染结果
func (p *Project) SetVideo(artifact *scripttools.Artifact) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.video = artifact
}

// Video 最近一次渲染结果
func (p *Project) Video() *scripttools.Artifact {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.video
}

func (p *Project) setLastReport(report *RunReport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastReport = report
}

// LastReport 最近一次批处理报告
func (p *Project) LastReport() *RunReport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastReport
}

// View 项目概览
func (p *Project) View() *ProjectView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	view := &ProjectView{
		ID:         p.ID,
		CreatedAt:  p.CreatedAt,
		Counts:     script.CountStatuses(p.lines),
		Timeline:   len(p.timeline),
		HasVideo:   p.video != nil,
		LastReport: p.lastReport,
	}
	if p.audio != nil {
		view.HasAudio = true
		view.AudioName = p.audio.Filename
	}
	return view
}
