package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"ay-digital/backend/pkg/response"
)

// 由 middleware.JWTAuth 注入的上下文键
const (
	CtxUserID   = "user_id"
	CtxRole     = "role"
	CtxTokenJTI = "token_jti"
	CtxTokenExp = "token_exp"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (int64, bool) {
	id := c.GetInt64(CtxUserID)
	if id == 0 {
		response.Unauthorized(c, "Unauthorized")
		return 0, false
	}
	return id, true
}

// MustGetToken 提取当前 Access Token 的 jti 与剩余有效期
func MustGetToken(c *gin.Context) (string, time.Duration, bool) {
	jti := c.GetString(CtxTokenJTI)
	if jti == "" {
		response.Unauthorized(c, "Unauthorized")
		return "", 0, false
	}
	exp := c.GetTime(CtxTokenExp)
	return jti, time.Until(exp), true
}
