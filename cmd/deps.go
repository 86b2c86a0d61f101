package cmd

import (
	"context"

	"github.com/rs/zerolog/log"

	"slidecast/internal/ai/component"
	"slidecast/internal/config"
	"slidecast/internal/pkg/ark"
	"slidecast/internal/pkg/ffmpeg"
	"slidecast/internal/pkg/scripttools"
	"slidecast/internal/pkg/scripttools/providers"
	"slidecast/internal/pkg/storagefactory"
	"slidecast/internal/service/slideshow"
)

// buildService 按配置组装幻灯片服务
// archive 为 nil 时不归档导出记录
func buildService(ctx context.Context, cfg *config.Config, observer slideshow.Observer, archive slideshow.ExportArchive) (slideshow.Service, *ffmpeg.Client, error) {
	st, err := storagefactory.NewStorage(ctx, &cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	if st == nil {
		log.Warn().Msg("storage not configured, export disabled")
	}

	imageClient := ark.NewImageClient(ark.ImageConfig{
		BaseURL:   cfg.Image.BaseURL,
		Model:     cfg.Image.Model,
		Size:      cfg.Image.Size,
		Watermark: cfg.Image.Watermark,
	})
	chatModels := component.NewChatModelFactory(cfg.AI)
	renderer := ffmpeg.NewClient(ffmpeg.Config{
		FFmpegPath:  cfg.Render.FFmpegPath,
		FFprobePath: cfg.Render.FFprobePath,
		WorkDir:     cfg.Render.WorkDir,
	})

	svc := slideshow.NewService(slideshow.Deps{
		Images:    providers.NewArkImageProvider(imageClient),
		Validator: providers.NewEinoCredentialValidator(chatModels),
		Alignment: providers.NewEinoAlignmentProvider(chatModels),
		Renderer:  renderer,
		Exporter:  slideshow.NewExporter(st, archive),
		Observer:  observer,
	}, slideshow.Options{
		Style:            cfg.Image.Style,
		MaxAttempts:      cfg.Pipeline.MaxAttempts,
		RetryDelay:       cfg.Pipeline.RetryDelay,
		MinDuration:      cfg.Pipeline.MinDuration,
		FallbackDuration: cfg.Pipeline.FallbackDuration,
		Output: scripttools.OutputConfig{
			Width:  cfg.Render.Width,
			Height: cfg.Render.Height,
			FPS:    cfg.Render.FPS,
			FadeIn: cfg.Render.FadeIn,
		},
	})

	log.Info().
		Str("image_model", imageClient.Model()).
		Str("ai_provider", cfg.AI.Provider).
		Str("ai_model", cfg.AI.Model).
		Str("storage", cfg.Storage.Type).
		Msg("slideshow service initialized")

	return svc, renderer, nil
}
