package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"slidecast/internal/config"
	"slidecast/internal/pkg/events"
)

// RedisCache Redis 客户端封装
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache 创建 Redis 客户端
func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisCache{client: client}, nil
}

// Set 设置缓存
func (c *RedisCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, expiration).Err()
}

// Ping 检查连接
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close 关闭连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// 常用 key 模式
const (
	EventChannelPrefix = "slidecast:events:"
	StatusKeyPrefix    = "slidecast:status:"
	StatusTTL          = 30 * time.Minute
)

// EventChannel 生成项目事件频道名
func EventChannel(projectID string) string {
	return EventChannelPrefix + projectID
}

// StatusKey 生成项目最近一次批处理结果的 key
func StatusKey(projectID string) string {
	return StatusKeyPrefix + projectID
}

// EventPublisher 将事件镜像到 Redis 频道，实现 events.Sink
// 批处理结束事件同时写入状态 key，供外部轮询
type EventPublisher struct {
	cache *RedisCache
}

// NewEventPublisher 创建事件镜像
func NewEventPublisher(cache *RedisCache) *EventPublisher {
	return &EventPublisher{cache: cache}
}

// Publish 发布事件
func (p *EventPublisher) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.cache.client.Publish(ctx, EventChannel(event.ProjectID), data).Err(); err != nil {
		return err
	}
	if event.Type == events.TypeBatchFinished {
		return p.cache.Set(ctx, StatusKey(event.ProjectID), event, StatusTTL)
	}
	return nil
}
