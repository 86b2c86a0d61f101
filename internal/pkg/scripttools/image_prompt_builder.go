package scripttools

import (
	"fmt"
	"strings"
)

// DefaultStyle 默认画面风格描述
const DefaultStyle = "cinematic illustration, soft natural lighting, consistent color palette, no text, no watermark"

// ImagePromptBuilder 图片 prompt 构建器
type ImagePromptBuilder struct {
	stylePrompt string
}

// NewImagePromptBuilder 创建图片 prompt 构建器，style 为空时使用默认风格
func NewImagePromptBuilder(style string) *ImagePromptBuilder {
	if strings.TrimSpace(style) == "" {
		style = DefaultStyle
	}
	return &ImagePromptBuilder{stylePrompt: strings.TrimSpace(style)}
}

// Style 风格描述
func (b *ImagePromptBuilder) Style() string {
	return b.stylePrompt
}

// BuildCompletePrompt 构建完整的图片 prompt
// 格式：场景描述. Style: 风格描述；提示词为空时用旁白描述场景
func (b *ImagePromptBuilder) BuildCompletePrompt(narration, prompt string) string {
	scene := strings.TrimSpace(prompt)
	if scene == "" {
		scene = strings.TrimSpace(narration)
	}
	return fmt.Sprintf("%s. Style: %s", scene, b.stylePrompt)
}
