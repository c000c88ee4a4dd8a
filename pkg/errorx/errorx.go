package errorx

import (
	"errors"
	"fmt"
)

// CodeError 带业务错误码的自定义错误
// 实现了 error 接口，支持 %w 包装底层错误，且能被 errors.Is/errors.As 识别
type CodeError struct {
	Code  int    // 业务错误码
	Msg   string // 错误消息
	cause error  // 被包装的底层错误
}

// Error 当存在底层错误时返回 "消息: 底层错误"，否则仅返回消息
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

// Unwrap 支持 errors.Is/errors.As 向下追溯
func (e *CodeError) Unwrap() error {
	return e.cause
}

// Is 同码即视为同一类错误，便于 errors.Is(err, errorx.ErrConflict) 这类判断
func (e *CodeError) Is(target error) bool {
	var t *CodeError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// New 创建一个新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

// Newf 创建一个带格式化消息的 CodeError
func Newf(code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap 包装底层错误，添加业务错误码和消息
// 用法: errorx.Wrap(err, CodeNotFound, "用户不存在")
func Wrap(err error, code int, msg string) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   msg,
		cause: err,
	}
}

// Wrapf 包装底层错误，支持格式化消息
func Wrapf(err error, code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   fmt.Sprintf(format, args...),
		cause: err,
	}
}

// GetCode 从错误中提取业务错误码，如果不是 CodeError 则返回默认码
func GetCode(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeServerBusy
}

// 业务状态码常量定义
const (
	CodeSuccess          = 1000 // 成功
	CodeInvalidParam     = 1001 // 请求参数错误（ValidationError）
	CodeServerBusy       = 1005 // 服务繁忙
	CodeUnauthorized     = 1006 // 未授权/认证失败
	CodeForbidden        = 1007 // 无权限
	CodeNotFound         = 1008 // 资源不存在
	CodeConflict         = 1009 // 唯一约束或状态冲突
	CodeDBError          = 1010 // 数据库错误
	CodeCacheError       = 1011 // 缓存错误
	CodeTagExhausted     = 1012 // 标签分配重试耗尽
	CodeCodeExhausted    = 1013 // 邀请码生成重试耗尽
	CodeInviteExpired    = 1014 // 邀请已过期
	CodeSelfReference    = 1015 // 不能对自己操作
	CodeInvalidReference = 1016 // 引用的实体不合法
)

// 预定义常用错误实例
// 这些实例既可直接返回，也可用于 errors.Is 比较
var (
	ErrInvalidParam     = New(CodeInvalidParam, "请求参数错误")
	ErrServerBusy       = New(CodeServerBusy, "服务繁忙")
	ErrUnauthorized     = New(CodeUnauthorized, "未登录或登录已失效")
	ErrForbidden        = New(CodeForbidden, "没有操作权限")
	ErrNotFound         = New(CodeNotFound, "资源不存在")
	ErrConflict         = New(CodeConflict, "资源冲突")
	ErrTagExhausted     = New(CodeTagExhausted, "该用户名下可用标签已耗尽，请更换用户名")
	ErrCodeExhausted    = New(CodeCodeExhausted, "邀请码生成失败，请稍后重试")
	ErrInviteExpired    = New(CodeInviteExpired, "邀请已过期")
	ErrSelfReference    = New(CodeSelfReference, "不能对自己执行该操作")
	ErrInvalidReference = New(CodeInvalidReference, "引用的消息不存在或不在同一频道")
)

// IsNotFound 检查错误是否为"未找到"类型
func IsNotFound(err error) bool {
	var codeErr *CodeError
	if errors.As(err, &codeErr) && codeErr.Code == CodeNotFound {
		return true
	}
	return err != nil && err.Error() == "record not found"
}

// IsConflict 检查错误是否为冲突类型
func IsConflict(err error) bool {
	return GetCode(err) == CodeConflict
}

// IsTransient 判断错误是否可以由调用方退避重试
// 只有存储/缓存/总线的临时故障属于此类，其余错误对本次调用都是终态
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch GetCode(err) {
	case CodeServerBusy, CodeDBError, CodeCacheError:
		return true
	}
	return false
}
