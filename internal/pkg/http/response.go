package http

import (
	"errors"
	"net/http"

	"slidecast/internal/pkg/apperr"
)

// ErrorResponse 错误响应（所有API共用）
// 用于统一错误响应格式
type ErrorResponse struct {
	Code    int    `json:"code"`             // 错误码（非0表示错误）
	Message string `json:"message"`          // 错误消息
	Kind    string `json:"kind,omitempty"`   // 错误类型（parse/validation/quota_exhausted...）
	Detail  string `json:"detail,omitempty"` // 错误详情（可选）
}

// SuccessResponse 成功响应（所有API共用）
// 用于统一成功响应格式
type SuccessResponse struct {
	Code    int         `json:"code"`           // 状态码（0表示成功）
	Message string      `json:"message"`        // 响应消息
	Data    interface{} `json:"data,omitempty"` // 响应数据（可选）
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(message string, data interface{}) *SuccessResponse {
	return &SuccessResponse{
		Code:    0,
		Message: message,
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string, detail ...string) *ErrorResponse {
	resp := &ErrorResponse{
		Code:    code,
		Message: message,
	}
	if len(detail) > 0 && detail[0] != "" {
		resp.Detail = detail[0]
	}
	return resp
}

// 错误类型对应的 HTTP 状态码与业务错误码
var kindStatus = map[apperr.Kind]struct {
	status int
	code   int
}{
	apperr.KindParse:          {http.StatusBadRequest, 40001},
	apperr.KindValidation:     {http.StatusBadRequest, 40002},
	apperr.KindQuotaExhausted: {http.StatusPaymentRequired, 40201},
	apperr.KindNotFound:       {http.StatusNotFound, 40401},
	apperr.KindConflict:       {http.StatusConflict, 40901},
	apperr.KindRender:         {http.StatusInternalServerError, 50001},
	apperr.KindInternal:       {http.StatusInternalServerError, 50000},
	apperr.KindSync:           {http.StatusBadGateway, 50201},
	apperr.KindTransient:      {http.StatusBadGateway, 50202},
}

// FromError 把应用错误转换为 HTTP 状态码和错误响应
// 非 apperr 错误按 internal 处理
func FromError(err error) (int, *ErrorResponse) {
	kind := apperr.KindOf(err)
	mapping, ok := kindStatus[kind]
	if !ok {
		mapping = kindStatus[apperr.KindInternal]
		kind = apperr.KindInternal
	}

	resp := &ErrorResponse{
		Code:    mapping.code,
		Message: err.Error(),
		Kind:    kind.String(),
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
		if appErr.Err != nil {
			resp.Detail = appErr.Err.Error()
		}
	}
	return mapping.status, resp
}
