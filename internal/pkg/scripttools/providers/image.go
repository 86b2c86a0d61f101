package providers

import (
	"context"

	"github.com/rs/zerolog/log"

	"slidecast/internal/pkg/ark"
	"slidecast/internal/pkg/scripttools"
)

// imageGenerator ark.ImageClient 的最小接口
type imageGenerator interface {
	GenerateImage(ctx context.Context, apiKey, prompt string) ([]byte, error)
}

// ArkImageProvider Ark 图片生成提供者
// 适配层，调用 ark.ImageClient（使用官方 Go SDK），每次请求使用会话凭证
type ArkImageProvider struct {
	client imageGenerator
}

var _ scripttools.ImageProvider = (*ArkImageProvider)(nil)

// NewArkImageProvider 创建 Ark 图片生成提供者
func NewArkImageProvider(client *ark.ImageClient) *ArkImageProvider {
	return &ArkImageProvider{client: client}
}

// GenerateImage 生成图片
// 错误由 ark.ClassifyError 分类后原样返回，控制器据此区分配额耗尽和临时错误
func (p *ArkImageProvider) GenerateImage(ctx context.Context, req scripttools.ImageRequest) ([]byte, error) {
	imageData, err := p.client.GenerateImage(ctx, req.Credential, req.Prompt)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("line_id", req.LineID).
		Int("size", len(imageData)).
		Msg("Ark 图片生成成功")

	return imageData, nil
}
