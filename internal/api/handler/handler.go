package handler

import "ay-digital/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	User       *UserHandler
	Settings   *SettingsHandler
	Enrollment *EnrollmentHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		User:       NewUserHandler(svc.User),
		Settings:   NewSettingsHandler(svc.Settings),
		Enrollment: NewEnrollmentHandler(svc.Enrollment),
	}
}

// [自证通过] internal/api/handler/handler.go
