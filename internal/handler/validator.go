package handler

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"

	"nexus_chat_server/internal/model"
	"nexus_chat_server/pkg/util/validate"
)

// Trans 全局翻译器，HandleParamError 用它翻译校验错误
var Trans ut.Translator

// domainRule 自定义校验标签及其中英文提示
type domainRule struct {
	tag   string
	fn    validator.Func
	zhMsg string
	enMsg string
}

func oneOf(values ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, v := range values {
			if s == v {
				return true
			}
		}
		return false
	}
}

var domainRules = []domainRule{
	{
		tag: "handle",
		fn: func(fl validator.FieldLevel) bool {
			username, _, err := validate.ParseHandle(fl.Field().String())
			if err != nil {
				return false
			}
			_, err = validate.Username(username)
			return err == nil
		},
		zhMsg: "{0}格式应为 用户名#四位数字",
		enMsg: "{0} must look like username#0000",
	},
	{
		tag:   "channel_type",
		fn:    oneOf(model.ChannelTypeText, model.ChannelTypeVoice),
		zhMsg: "{0}只能是 text 或 voice",
		enMsg: "{0} must be text or voice",
	},
	{
		tag: "profile_status",
		fn: func(fl validator.FieldLevel) bool {
			return model.ValidProfileStatus(fl.Field().String())
		},
		zhMsg: "{0}只能是 online、idle、dnd 或 invisible",
		enMsg: "{0} must be one of online, idle, dnd, invisible",
	},
	{
		tag:   "member_role",
		fn:    oneOf(model.RoleOwner, model.RoleAdmin, model.RoleMember),
		zhMsg: "{0}只能是 owner、admin 或 member",
		enMsg: "{0} must be one of owner, admin, member",
	},
}

// InitTrans 初始化校验翻译器并注册业务校验标签
// locale 为 "zh" 或 "en"，其它值按英文处理
func InitTrans(locale string) (err error) {
	// Gin v1.9+ 中 binding.Validator 可能为 nil
	if binding.Validator == nil {
		binding.Validator = &defaultValidator{validator: validator.New()}
	}
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	// 错误信息里使用 json 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enT := en.New()
	uni := ut.New(enT, zh.New(), enT)
	Trans, ok = uni.GetTranslator(locale)
	if !ok {
		return fmt.Errorf("uni.GetTranslator(%s) failed", locale)
	}
	if locale == "zh" {
		err = zh_translations.RegisterDefaultTranslations(v, Trans)
	} else {
		err = en_translations.RegisterDefaultTranslations(v, Trans)
	}
	if err != nil {
		return err
	}
	return registerDomainRules(v, locale)
}

func registerDomainRules(v *validator.Validate, locale string) error {
	for _, rule := range domainRules {
		if err := v.RegisterValidation(rule.tag, rule.fn); err != nil {
			return fmt.Errorf("register validation %s: %w", rule.tag, err)
		}
		msg := rule.enMsg
		if locale == "zh" {
			msg = rule.zhMsg
		}
		tag := rule.tag
		err := v.RegisterTranslation(tag, Trans,
			func(ut ut.Translator) error {
				return ut.Add(tag, msg, true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				t, _ := ut.T(tag, fe.Field())
				return t
			})
		if err != nil {
			return fmt.Errorf("register translation %s: %w", tag, err)
		}
	}
	return nil
}

// RemoveTopStruct 去掉字段名前的结构体前缀，如 SendFriendRequest.handle -> handle
func RemoveTopStruct(fields map[string]string) map[string]string {
	res := make(map[string]string)
	for field, err := range fields {
		res[field[strings.Index(field, ".")+1:]] = err
	}
	return res
}

// defaultValidator 实现 binding.StructValidator
type defaultValidator struct {
	validator *validator.Validate
}

func (v *defaultValidator) ValidateStruct(obj interface{}) error {
	return v.validator.Struct(obj)
}

func (v *defaultValidator) Engine() interface{} {
	return v.validator
}
