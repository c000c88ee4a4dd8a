package handler

import (
	"errors"
	"net/http"

	"nexus_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ResponseData 统一响应结构，msg 在参数校验失败时是 字段 -> 提示 的映射
type ResponseData struct {
	Code int `json:"code"`
	Msg  any `json:"msg"`
	Data any `json:"data,omitempty"`
}

// HandleSuccess 返回成功响应
func HandleSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code": errorx.CodeSuccess,
		"msg":  "success",
		"data": data,
	})
}

// HandleError 把业务层错误写成统一响应
//   - 终态业务错误（参数、权限、冲突等）原样返回错误码和消息，只记 Debug
//   - 存储/缓存这类临时故障统一返回 ServerBusy，客户端可以退避重试，记 Warn
//   - 非 CodeError 说明有错误漏过了业务层的包装，记 Error
func HandleError(c *gin.Context, err error) {
	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.Error(err),
	}
	var codeErr *errorx.CodeError
	switch {
	case errors.As(err, &codeErr) && errorx.IsTransient(err):
		zap.L().Warn("transient error", append(fields, zap.Int("code", codeErr.Code))...)
		writeError(c, errorx.ErrServerBusy)
	case codeErr != nil:
		zap.L().Debug("request rejected", append(fields, zap.Int("code", codeErr.Code))...)
		writeError(c, codeErr)
	default:
		zap.L().Error("unclassified error", fields...)
		writeError(c, errorx.ErrServerBusy)
	}
}

func writeError(c *gin.Context, e *errorx.CodeError) {
	c.JSON(http.StatusOK, gin.H{
		"code": e.Code,
		"msg":  e.Msg,
		"data": nil,
	})
}

// HandleParamError 参数绑定失败；校验错误按字段翻译后放进 msg
func HandleParamError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusOK, gin.H{
			"code": errorx.ErrInvalidParam.Code,
			"msg":  RemoveTopStruct(validationErrs.Translate(Trans)),
			"data": nil,
		})
		return
	}

	// JSON 格式错误、类型不匹配等，属于客户端问题
	zap.L().Debug("param bind error", zap.String("path", c.Request.URL.Path), zap.Error(err))
	writeError(c, errorx.ErrInvalidParam)
}
