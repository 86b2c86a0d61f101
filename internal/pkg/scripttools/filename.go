package scripttools

import (
	"regexp"
	"strings"
)

const (
	// ImageExtension 生成图片的固定扩展名
	ImageExtension = ".png"
	// MaxFilenameStem 文件名主体的最大长度
	MaxFilenameStem = 50
	// filenameSeparator 非字母数字字符折叠后的分隔符
	filenameSeparator = "_"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// SanitizeFilename 由旁白文本派生文件系统安全的图片文件名
// 小写化，[a-z0-9] 以外的连续字符折叠为单个分隔符，截断到 50 个字符，加固定扩展名
// 旁白中没有任何可用字符时退回到 fallback（通常是行ID）
func SanitizeFilename(narration, fallback string) string {
	stem := sanitizeStem(narration)
	if stem == "" {
		stem = sanitizeStem(fallback)
	}
	if stem == "" {
		stem = "image"
	}
	return stem + ImageExtension
}

func sanitizeStem(text string) string {
	stem := nonAlphanumeric.ReplaceAllString(strings.ToLower(text), filenameSeparator)
	stem = strings.Trim(stem, filenameSeparator)
	if len(stem) > MaxFilenameStem {
		stem = strings.TrimRight(stem[:MaxFilenameStem], filenameSeparator)
	}
	return stem
}
