package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Storage 导出产物的对象存储接口
type Storage interface {
	// Put 写入对象，返回可访问的URL
	Put(ctx context.Context, key string, data io.Reader, contentType string) (string, error)

	// Get 读取对象
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// SignedURL 生成限时下载URL
	SignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)

	// Delete 删除对象，不存在时视为成功
	Delete(ctx context.Context, key string) error

	// Exists 检查对象是否存在
	Exists(ctx context.Context, key string) (bool, error)

	// Stat 对象元信息
	Stat(ctx context.Context, key string) (*ObjectInfo, error)

	// Type 存储类型
	Type() string
}

// ObjectInfo 对象元信息
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// StorageType 存储类型
type StorageType string

const (
	StorageTypeLocal StorageType = "local" // 本地文件系统
	StorageTypeOSS   StorageType = "oss"   // 阿里云OSS
)

// ExportKey 导出对象的 key：exports/{project}/{export}/{name}
func ExportKey(projectID, exportID, name string) string {
	return path.Join("exports", projectID, exportID, path.Base(name))
}

// CleanKey 规范化 key，拒绝越界路径
func CleanKey(key string) (string, error) {
	key = strings.ReplaceAll(key, "\\", "/")
	cleaned := path.Clean("/" + key)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid storage key: %q", key)
	}
	return cleaned, nil
}
