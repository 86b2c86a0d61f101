package id

import (
	"strings"

	"github.com/google/uuid"
)

// New 生成新的UUID（string格式）
func New() string {
	return uuid.New().String()
}

// Short 生成不带连字符的短ID，用于文件名和对象存储key
func Short() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}
