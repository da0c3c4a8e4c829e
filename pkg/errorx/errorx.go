package errorx

import (
	"errors"
	"fmt"
	"net/http"
)

// CodeError 带业务错误码的错误，可通过 errors.As 取出，Unwrap 返回底层错误
type CodeError struct {
	Code  int
	Msg   string
	cause error
}

func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

func (e *CodeError) Unwrap() error {
	return e.cause
}

// Is 按错误码比较，使预定义错误实例可用于 errors.Is
func (e *CodeError) Is(target error) bool {
	var t *CodeError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.cause == nil
}

// New 不带底层错误的业务错误
func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func Newf(code int, format string, args ...any) *CodeError {
	return &CodeError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误，例如 errorx.Wrap(err, CodeDBError, "create chat")
func Wrap(err error, code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg, cause: err}
}

func Wrapf(err error, code int, format string, args ...any) *CodeError {
	return &CodeError{Code: code, Msg: fmt.Sprintf(format, args...), cause: err}
}

// GetCode 提取业务错误码，非 CodeError 视为服务繁忙
func GetCode(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeServerBusy
}

// GetMsg 提取对外展示的消息，不暴露底层错误
func GetMsg(err error) string {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Msg
	}
	return ErrServerBusy.Msg
}

const (
	CodeSuccess            = 1000 // 成功
	CodeInvalidParam       = 1001 // 请求参数错误
	CodeServerBusy         = 1005 // 服务繁忙
	CodeUnauthorized       = 1006 // 未认证
	CodeForbidden          = 1007 // 无权限
	CodeNotFound           = 1008 // 资源不存在
	CodeInvariantViolation = 1009 // 违反业务不变量
	CodeDBError            = 1010 // 数据库错误
	CodeCacheError         = 1011 // 缓存错误
	CodeBroadcastError     = 1012 // 广播错误
	CodeDuplicate          = 1013 // 唯一约束冲突
	CodeTooManyRequests    = 1014 // 请求过于频繁
)

var (
	ErrInvalidParam    = New(CodeInvalidParam, "invalid param")
	ErrServerBusy      = New(CodeServerBusy, "server busy")
	ErrUnauthorized    = New(CodeUnauthorized, "unauthorized")
	ErrForbidden       = New(CodeForbidden, "forbidden")
	ErrNotFound        = New(CodeNotFound, "not found")
	ErrTooManyRequests = New(CodeTooManyRequests, "too many requests")
)

func hasCode(err error, codes ...int) bool {
	var codeErr *CodeError
	if !errors.As(err, &codeErr) {
		return false
	}
	for _, c := range codes {
		if codeErr.Code == c {
			return true
		}
	}
	return false
}

// IsNotFound 错误链中是否有 CodeNotFound
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsForbidden 无权限或未登录
func IsForbidden(err error) bool {
	return hasCode(err, CodeForbidden, CodeUnauthorized)
}

// IsInvariant 违反不变量，包括唯一约束冲突
func IsInvariant(err error) bool {
	return hasCode(err, CodeInvariantViolation, CodeDuplicate)
}

// IsDependency 数据库、缓存、广播等依赖故障
func IsDependency(err error) bool {
	return hasCode(err, CodeDBError, CodeCacheError, CodeBroadcastError)
}

// HTTPStatus 业务码到 HTTP 状态码的映射
func HTTPStatus(code int) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvariantViolation, CodeDuplicate:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
