package scripttools

import (
	"context"

	"slidecast/internal/model/script"
)

// ImageRequest 单行图片生成请求
type ImageRequest struct {
	Credential string // 当前会话凭证
	LineID     string // 行ID
	Narration  string // 旁白文本
	Prompt     string // 图片提示词（可为空）
	Style      string // 固定风格描述
}

// ImageProvider 图片生成提供者接口
// 配额耗尽必须以 apperr.KindQuotaExhausted 返回，其他失败视为临时错误
type ImageProvider interface {
	// GenerateImage 生成单行图片，返回编码后的图片数据
	GenerateImage(ctx context.Context, req ImageRequest) ([]byte, error)
}

// CredentialValidator 凭证校验接口
type CredentialValidator interface {
	// Validate 校验凭证是否可用
	//
	// Returns:
	//   - valid: 凭证是否有效
	//   - err: 校验调用本身失败
	Validate(ctx context.Context, credential string) (bool, error)
}

// AlignmentLine 发给对齐服务的一行
type AlignmentLine struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// AlignmentProvider 音频对齐提供者接口
// 返回的提示可以缺少部分行，调用方必须容忍
type AlignmentProvider interface {
	Align(ctx context.Context, credential string, audio script.Audio, lines []AlignmentLine) ([]script.AlignmentHint, error)
}

// OutputConfig 渲染输出配置
type OutputConfig struct {
	Width  int     `json:"width" mapstructure:"width"`
	Height int     `json:"height" mapstructure:"height"`
	FPS    int     `json:"fps" mapstructure:"fps"`
	FadeIn float64 `json:"fade_in" mapstructure:"fade_in"` // 每张图片的淡入时长（秒）
}

// RenderRequest 渲染请求
type RenderRequest struct {
	Timeline []script.TimelineEntry
	Audio    script.Audio
	Output   OutputConfig
}

// Artifact 渲染产物
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
	Duration    float64
}

// ProgressFunc 渲染进度回调（0-100）
type ProgressFunc func(percent int)

// Renderer 渲染器接口（合成帧并编码视频）
type Renderer interface {
	Render(ctx context.Context, req RenderRequest, progress ProgressFunc) (*Artifact, error)
}

// ToAlignmentLines 将脚本行转换为对齐请求行
func ToAlignmentLines(lines []*script.ScriptLine) []AlignmentLine {
	out := make([]AlignmentLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, AlignmentLine{ID: line.ID, Text: line.Narration})
	}
	return out
}

// MonotonicProgress 包装进度回调，保证上报值在 0-100 之间且不回退
func MonotonicProgress(fn ProgressFunc) ProgressFunc {
	last := -1
	return func(percent int) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		if percent <= last {
			return
		}
		last = percent
		if fn != nil {
			fn(percent)
		}
	}
}
