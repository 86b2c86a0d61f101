package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类型
// 调用方通过 Kind 区分错误，而不是比较错误消息
type Kind string

const (
	KindParse          Kind = "parse"           // 脚本解析失败（需重新上传）
	KindValidation     Kind = "validation"      // 凭证或预算校验失败（可重试）
	KindTransient      Kind = "transient"       // 生成调用的临时错误（本地重试）
	KindQuotaExhausted Kind = "quota_exhausted" // 凭证配额耗尽（需更换凭证）
	KindSync           Kind = "sync"            // 音频对齐失败（可重试）
	KindRender         Kind = "render"          // 视频渲染失败
	KindConflict       Kind = "conflict"        // 状态冲突（如批处理运行中）
	KindNotFound       Kind = "not_found"       // 资源不存在
	KindInternal       Kind = "internal"        // 其他内部错误
)

// String 返回类型的字符串表示
func (k Kind) String() string {
	return string(k)
}

// Retryable 该类错误是否可以由操作者直接重试
func (k Kind) Retryable() bool {
	switch k {
	case KindValidation, KindTransient, KindSync, KindConflict:
		return true
	default:
		return false
	}
}

// Error 带类型的应用错误
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *Error) Unwrap() error {
	return e.Err
}

// New 创建带类型的错误
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Parse(message string) *Error { return New(KindParse, message, nil) }

func Validation(message string, err error) *Error { return New(KindValidation, message, err) }

func Transient(message string, err error) *Error { return New(KindTransient, message, err) }

func QuotaExhausted(message string, err error) *Error { return New(KindQuotaExhausted, message, err) }

func Sync(message string, err error) *Error { return New(KindSync, message, err) }

func Render(message string, err error) *Error { return New(KindRender, message, err) }

func Conflict(message string) *Error { return New(KindConflict, message, nil) }

func NotFound(message string) *Error { return New(KindNotFound, message, nil) }

// KindOf 返回错误链上第一个 *Error 的类型，非 *Error 视为 internal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is 检查错误链是否为指定类型
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsQuotaExhausted 检查是否为配额耗尽错误
func IsQuotaExhausted(err error) bool {
	return Is(err, KindQuotaExhausted)
}

// Wrap 包装错误；已经是 *Error 时保留原类型
func Wrap(err error, message string, kind Kind) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Error{Kind: e.Kind, Message: fmt.Sprintf("%s: %s", message, e.Message), Err: e.Err}
	}
	return New(kind, message, err)
}
