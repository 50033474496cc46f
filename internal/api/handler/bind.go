package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"ay-digital/backend/internal/model"
	"ay-digital/backend/pkg/response"
)

// bindOptionalJSON 解析请求体，空请求体视为 {}，必填校验交给 service
// 解析失败时写入 400 并返回 false
func bindOptionalJSON(c *gin.Context, obj interface{}, message string) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, message)
		return false
	}
	return true
}

// RegisterValidators 向 gin 的校验引擎注册自定义规则
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin 校验引擎不是 validator/v10")
	}
	return v.RegisterValidation("menu_label", func(fl validator.FieldLevel) bool {
		return model.ValidMenuLabel(fl.Field().String())
	})
}
