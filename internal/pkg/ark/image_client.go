package ark

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"

	"slidecast/internal/pkg/apperr"
)

const (
	// DefaultBaseURL Ark API 默认地址
	DefaultBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	// DefaultImageModel 默认图片生成模型
	DefaultImageModel = "doubao-seedream-3-0-t2i-250415"
	// DefaultImageSize 默认尺寸（横屏，与默认渲染分辨率一致）
	DefaultImageSize = "1280x720"
)

// 表示额度或账户不可用的错误码；限流和过载属于临时错误
var quotaCodes = map[string]bool{
	"QuotaExceeded":       true,
	"InsufficientQuota":   true,
	"AccountOverdueError": true,
	"SetLimitExceeded":    true,
}

var transientCodes = map[string]bool{
	"RateLimitExceeded": true,
	"ServerOverloaded":  true,
}

// ImageConfig Ark 图片生成配置
// API Key 不在配置中，每次请求使用调用方传入的会话凭证
type ImageConfig struct {
	BaseURL   string // API 基础 URL（可选）
	Model     string // 模型名称（可选）
	Size      string // 图片尺寸，如 1280x720
	Watermark bool   // 是否加水印
}

// ImageClient Ark 图片生成客户端
// 凭证在运行中会被替换，按凭证缓存最近一个 SDK 客户端
type ImageClient struct {
	cfg ImageConfig

	mu         sync.Mutex
	lastKey    string
	lastClient *arkruntime.Client
}

// NewImageClient 创建 Ark 图片生成客户端
func NewImageClient(cfg ImageConfig) *ImageClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultImageModel
	}
	if cfg.Size == "" {
		cfg.Size = DefaultImageSize
	}
	return &ImageClient{cfg: cfg}
}

// Model 使用的模型名称
func (c *ImageClient) Model() string {
	return c.cfg.Model
}

func (c *ImageClient) clientFor(apiKey string) *arkruntime.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastClient == nil || c.lastKey != apiKey {
		c.lastClient = arkruntime.NewClientWithApiKey(apiKey, arkruntime.WithBaseUrl(c.cfg.BaseURL))
		c.lastKey = apiKey
	}
	return c.lastClient
}

// GenerateImage 生成一张图片，返回解码后的图片数据
// 错误已按 apperr 分类：配额/账户问题为 quota_exhausted，其他为 transient
func (c *ImageClient) GenerateImage(ctx context.Context, apiKey, prompt string) ([]byte, error) {
	if apiKey == "" {
		return nil, apperr.Validation("api key is required", nil)
	}

	size := c.cfg.Size
	responseFormat := "b64_json"
	watermark := c.cfg.Watermark

	input := model.GenerateImagesRequest{
		Model:          c.cfg.Model,
		Prompt:         prompt,
		Size:           &size,
		ResponseFormat: &responseFormat,
		Watermark:      &watermark,
	}

	output, err := c.clientFor(apiKey).GenerateImages(ctx, input)
	if err != nil {
		log.Error().Err(err).Str("model", c.cfg.Model).Msg("failed to call Ark GenerateImages API")
		return nil, ClassifyError(err)
	}

	if len(output.Data) == 0 {
		return nil, apperr.Transient("no image data in response", nil)
	}
	first := output.Data[0]
	if first.B64Json == nil {
		return nil, apperr.Transient("no b64_json in response data", nil)
	}

	imageData, err := base64.StdEncoding.DecodeString(*first.B64Json)
	if err != nil {
		return nil, apperr.Transient("failed to decode base64 image data", err)
	}
	return imageData, nil
}

// ClassifyError 把 Ark SDK 错误转换为 apperr
//   - 402、额度错误码、401/403（凭证不可用）→ quota_exhausted，需要新凭证
//   - 429（限流/过载，或没有额度错误码）→ transient
//   - 其他（包括非 SDK 错误）→ transient
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		switch {
		case quotaCodes[apiErr.Code]:
			return apperr.QuotaExhausted(fmt.Sprintf("quota exhausted (%s)", apiErr.Code), err)
		case transientCodes[apiErr.Code]:
			return apperr.Transient(fmt.Sprintf("rate limited (%s)", apiErr.Code), err)
		}
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}

	var reqErr *model.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}

	return apperr.Transient("image generation failed", err)
}

func classifyStatus(status int, err error) error {
	switch status {
	case http.StatusPaymentRequired:
		return apperr.QuotaExhausted("quota exhausted", err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.QuotaExhausted("credential rejected", err)
	case http.StatusTooManyRequests:
		return apperr.Transient("rate limited (429)", err)
	default:
		return apperr.Transient(fmt.Sprintf("image generation failed (status %d)", status), err)
	}
}
