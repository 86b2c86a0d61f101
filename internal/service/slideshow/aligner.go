package slideshow

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"slidecast/internal/model/script"
	"slidecast/internal/pkg/apperr"
	"slidecast/internal/pkg/scripttools"
)

// Aligner 把已完成的行与旁白音频对齐，生成规范化后的时间轴
type Aligner struct {
	provider   scripttools.AlignmentProvider
	normalizer *scripttools.TimelineNormalizer
}

// NewAligner 创建对齐器
func NewAligner(provider scripttools.AlignmentProvider, normalizer *scripttools.TimelineNormalizer) *Aligner {
	if normalizer == nil {
		normalizer = scripttools.NewTimelineNormalizer(0, 0)
	}
	return &Aligner{provider: provider, normalizer: normalizer}
}

// Align 对齐音频
//
// 只有已完成且有图片的行参与对齐；服务端可能遗漏部分行，缺失的行使用回退时长。
// 对齐服务调用失败返回 sync 错误，之前的时间轴保持不变，可重试。
func (a *Aligner) Align(ctx context.Context, credential string, lines []*script.ScriptLine, audio script.Audio) ([]script.TimelineEntry, error) {
	selected := scripttools.SelectAlignable(lines)
	if len(selected) == 0 {
		return nil, apperr.Validation("no completed lines to align", nil)
	}
	if len(audio.Data) == 0 {
		return nil, apperr.Validation("narration audio is required", nil)
	}
	if credential == "" {
		return nil, apperr.Validation("no active credential", nil)
	}

	start := time.Now()
	hints, err := a.provider.Align(ctx, credential, audio, scripttools.ToAlignmentLines(selected))
	if err != nil {
		log.Error().Err(err).Int("lines", len(selected)).Msg("alignment request failed")
		return nil, apperr.Sync("alignment failed", err)
	}

	timeline := a.normalizer.Normalize(scripttools.BuildTimeline(selected, hints))

	missing := len(selected) - countMatched(selected, hints)
	log.Info().
		Int("lines", len(selected)).
		Int("hints", len(hints)).
		Int("missing", missing).
		Float64("duration", scripttools.TimelineDuration(timeline)).
		Dur("elapsed", time.Since(start)).
		Msg("audio aligned")

	return timeline, nil
}

func countMatched(lines []*script.ScriptLine, hints []script.AlignmentHint) int {
	ids := make(map[string]struct{}, len(hints))
	for _, hint := range hints {
		ids[hint.LineID] = struct{}{}
	}
	n := 0
	for _, line := range lines {
		if _, ok := ids[line.ID]; ok {
			n++
		}
	}
	return n
}
