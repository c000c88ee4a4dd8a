// Package validate 业务字段校验，失败统一返回 CodeInvalidParam
package validate

import (
	"strings"
	"unicode/utf8"

	"nexus_chat_server/pkg/constants"
	"nexus_chat_server/pkg/errorx"
)

// Username 用户名：去掉首尾空白后非空，不超过 32 个字符，不含 '#'
func Username(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errorx.New(errorx.CodeInvalidParam, "用户名不能为空")
	}
	if utf8.RuneCountInString(s) > constants.USERNAME_MAX_LEN {
		return "", errorx.Newf(errorx.CodeInvalidParam, "用户名不能超过 %d 个字符", constants.USERNAME_MAX_LEN)
	}
	if strings.Contains(s, "#") {
		return "", errorx.New(errorx.CodeInvalidParam, "用户名不能包含 #")
	}
	return s, nil
}

// Content 消息内容：去掉首尾空白后 1-2000 个字符
func Content(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errorx.New(errorx.CodeInvalidParam, "消息内容不能为空")
	}
	if utf8.RuneCountInString(s) > constants.MESSAGE_MAX_LEN {
		return "", errorx.Newf(errorx.CodeInvalidParam, "消息内容不能超过 %d 个字符", constants.MESSAGE_MAX_LEN)
	}
	return s, nil
}

// Name 非空且不超过 max 个字符的名称
func Name(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errorx.Newf(errorx.CodeInvalidParam, "%s不能为空", field)
	}
	if utf8.RuneCountInString(s) > max {
		return "", errorx.Newf(errorx.CodeInvalidParam, "%s不能超过 %d 个字符", field, max)
	}
	return s, nil
}

// MaxLen 可为空，但不超过 max 个字符
func MaxLen(field, s string, max int) error {
	if utf8.RuneCountInString(s) > max {
		return errorx.Newf(errorx.CodeInvalidParam, "%s不能超过 %d 个字符", field, max)
	}
	return nil
}

// ParseHandle 解析 "username#1234"
func ParseHandle(handle string) (username, tag string, err error) {
	i := strings.LastIndex(handle, "#")
	if i <= 0 || i == len(handle)-1 {
		return "", "", errorx.New(errorx.CodeInvalidParam, "格式应为 用户名#四位数字")
	}
	username, tag = strings.TrimSpace(handle[:i]), handle[i+1:]
	if len(tag) != 4 || strings.Trim(tag, "0123456789") != "" {
		return "", "", errorx.New(errorx.CodeInvalidParam, "格式应为 用户名#四位数字")
	}
	return username, tag, nil
}
