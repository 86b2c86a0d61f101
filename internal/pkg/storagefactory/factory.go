package storagefactory

import (
	"context"
	"fmt"

	"slidecast/internal/config"
	"slidecast/internal/pkg/storage"
	"slidecast/internal/pkg/storage/local"
	"slidecast/internal/pkg/storage/oss"
)

// NewStorage 根据配置创建导出存储，type 为空表示不启用
func NewStorage(ctx context.Context, cfg *config.StorageConfig) (storage.Storage, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case string(storage.StorageTypeLocal):
		if cfg.Local == nil {
			return nil, fmt.Errorf("local storage config is required")
		}
		return local.NewLocalStorage(cfg.Local.BasePath, cfg.Local.BaseURL)
	case string(storage.StorageTypeOSS):
		if cfg.OSS == nil {
			return nil, fmt.Errorf("OSS storage config is required")
		}
		return oss.NewOSSStorage(
			cfg.OSS.Endpoint,
			cfg.OSS.Bucket,
			cfg.OSS.AccessKeyID,
			cfg.OSS.AccessKeySecret,
			cfg.OSS.PresignExpiry,
		)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
