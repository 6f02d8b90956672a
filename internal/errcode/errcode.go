package errcode

import "errors"

// Kind 表示核心操作失败的分类，HTTP 层据此映射状态码。
type Kind int

const (
	// Validation 输入不合法，调用方修正后可重试。
	Validation Kind = iota + 1
	// Conflict 唯一字段（email/username）已被占用。
	Conflict
	// Auth 凭证错误或令牌无效/过期，对外统一口径。
	Auth
	// Forbidden 资源归属与请求身份不符。
	Forbidden
	// NotFound 用户或文件不存在。
	NotFound
	// Storage 对象存储 I/O 失败，细节只进日志。
	Storage
	// Persistence 元数据库读写失败，细节只进日志。
	Persistence
)

// Error 同时携带安全的对外消息与完整的内部错误。
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New 构造不含内部错误的分类错误。
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap 构造携带内部错误的分类错误；message 必须可安全返回给调用方。
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf 提取错误分类；非分类错误返回 0。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// SafeMessage 返回可直接透给调用方的消息。
// Storage/Persistence 一律折叠为通用提示，避免泄露后端细节。
func SafeMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	switch e.Kind {
	case Storage, Persistence:
		return "internal error"
	default:
		return e.Message
	}
}
