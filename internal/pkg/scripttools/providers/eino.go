package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	arkmodel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"

	"slidecast/internal/ai/component"
	"slidecast/internal/model/script"
	"slidecast/internal/pkg/scripttools"
)

const alignmentPrompt = `你是一个音频对齐助手。附带的音频是下面各行旁白的朗读录音，按顺序朗读。
请找出每一行在音频中的开始和结束时间（秒，保留两位小数）。
只输出 JSON 数组，不要输出其他内容，格式：
[{"id": "行ID", "start": 0.00, "end": 2.50}]
无法确定的行可以省略。

旁白行（JSON）：
%s`

// EinoAlignmentProvider 基于 Eino ChatModel 的音频对齐提供者
// 把音频作为 data URL 发给支持音频输入的模型，解析返回的时间提示
type EinoAlignmentProvider struct {
	newModel component.ChatModelFactory
}

var _ scripttools.AlignmentProvider = (*EinoAlignmentProvider)(nil)

// NewEinoAlignmentProvider 创建对齐提供者
//
// Args:
//   - newModel: 按凭证创建 ChatModel 的工厂（component.NewChatModelFactory）
func NewEinoAlignmentProvider(newModel component.ChatModelFactory) *EinoAlignmentProvider {
	return &EinoAlignmentProvider{newModel: newModel}
}

// Align 请求对齐提示；返回的提示可能缺少部分行
func (p *EinoAlignmentProvider) Align(ctx context.Context, credential string, audio script.Audio, lines []scripttools.AlignmentLine) ([]script.AlignmentHint, error) {
	if p.newModel == nil {
		return nil, fmt.Errorf("chat model factory is required")
	}
	chatModel, err := p.newModel(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	linesJSON, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("marshal alignment lines: %w", err)
	}

	mimeType := audio.MIMEType
	if mimeType == "" {
		mimeType = "audio/mpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(audio.Data))

	messages := []*schema.Message{
		{
			Role: schema.User,
			MultiContent: []schema.ChatMessagePart{
				{
					Type: schema.ChatMessagePartTypeText,
					Text: fmt.Sprintf(alignmentPrompt, string(linesJSON)),
				},
				{
					Type: schema.ChatMessagePartTypeAudioURL,
					AudioURL: &schema.ChatMessageAudioURL{
						URL:      dataURL,
						MIMEType: mimeType,
					},
				},
			},
		},
	}

	response, err := chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate alignment: %w", err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return nil, fmt.Errorf("empty response from chat model")
	}

	hints, err := scripttools.ParseAlignmentHints(response.Content)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("lines", len(lines)).
		Int("hints", len(hints)).
		Msg("alignment hints received")

	return hints, nil
}

// EinoCredentialValidator 通过一次最小的对话请求校验凭证
type EinoCredentialValidator struct {
	newModel component.ChatModelFactory
}

var _ scripttools.CredentialValidator = (*EinoCredentialValidator)(nil)

// NewEinoCredentialValidator 创建凭证校验器
func NewEinoCredentialValidator(newModel component.ChatModelFactory) *EinoCredentialValidator {
	return &EinoCredentialValidator{newModel: newModel}
}

// Validate 凭证被服务端拒绝时返回 (false, nil)；网络等其他失败返回 error
func (v *EinoCredentialValidator) Validate(ctx context.Context, credential string) (bool, error) {
	if strings.TrimSpace(credential) == "" {
		return false, nil
	}
	chatModel, err := v.newModel(ctx, credential)
	if err != nil {
		return false, fmt.Errorf("create chat model: %w", err)
	}

	_, err = chatModel.Generate(ctx, []*schema.Message{schema.UserMessage("ping")}, model.WithMaxTokens(1))
	if err == nil {
		return true, nil
	}
	if IsCredentialRejected(err) {
		log.Info().Err(err).Msg("credential rejected by provider")
		return false, nil
	}
	return false, err
}

// IsCredentialRejected 判断错误是否表示凭证无效或不可用（鉴权失败、欠费、额度耗尽）
func IsCredentialRejected(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *arkmodel.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusPaymentRequired:
			return true
		}
		switch apiErr.Code {
		case "AuthenticationError", "AccessDenied", "AccountOverdueError", "InsufficientQuota", "QuotaExceeded":
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"401", "403", "unauthorized", "invalid api key", "incorrect api key", "authentication", "overdue"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
