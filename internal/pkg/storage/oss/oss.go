package oss

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"slidecast/internal/pkg/storage"
)

// OSSStorage 阿里云OSS存储
type OSSStorage struct {
	bucket        *oss.Bucket
	bucketName    string
	presignExpiry time.Duration // 签名URL最长有效期
}

// NewOSSStorage 创建阿里云OSS存储
func NewOSSStorage(endpoint, bucketName, accessKeyID, accessKeySecret string, presignExpiry int) (*OSSStorage, error) {
	client, err := oss.New(endpoint, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &OSSStorage{
		bucket:        bucket,
		bucketName:    bucketName,
		presignExpiry: time.Duration(presignExpiry) * time.Second,
	}, nil
}

// Put 上传对象
func (s *OSSStorage) Put(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	cleaned, err := storage.CleanKey(key)
	if err != nil {
		return "", err
	}

	if err := s.bucket.PutObject(cleaned, data, oss.ContentType(contentType), oss.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	endpoint := strings.TrimPrefix(strings.TrimPrefix(s.bucket.Client.Config.Endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.bucketName, endpoint, cleaned), nil
}

// Get 下载对象
func (s *OSSStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := s.bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	return body, nil
}

// SignedURL 签名下载URL，有效期不超过配置值
func (s *OSSStorage) SignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	expiry := expiresIn
	if s.presignExpiry > 0 && s.presignExpiry < expiresIn {
		expiry = s.presignExpiry
	}

	url, err := s.bucket.SignURL(key, oss.HTTPGet, int64(expiry.Seconds()))
	if err != nil {
		return "", fmt.Errorf("failed to sign download URL: %w", err)
	}
	return url, nil
}

// Delete 删除对象
func (s *OSSStorage) Delete(ctx context.Context, key string) error {
	if err := s.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Exists 检查对象是否存在
func (s *OSSStorage) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.bucket.IsObjectExist(key, oss.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return exists, nil
}

// Stat 对象元信息
func (s *OSSStorage) Stat(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	props, err := s.bucket.GetObjectDetailedMeta(key, oss.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get object meta: %w", err)
	}

	size, _ := strconv.ParseInt(props.Get("Content-Length"), 10, 64)

	contentType := props.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var lastModified time.Time
	if raw := props.Get("Last-Modified"); raw != "" {
		lastModified, _ = time.Parse(time.RFC1123, raw)
	}

	return &storage.ObjectInfo{
		Key:          key,
		Size:         size,
		ContentType:  contentType,
		ETag:         strings.Trim(props.Get("ETag"), `"`),
		LastModified: lastModified,
	}, nil
}

// Type 存储类型
func (s *OSSStorage) Type() string {
	return string(storage.StorageTypeOSS)
}
