package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"ay-digital/backend/internal/dto"
	"ay-digital/backend/internal/model"
	"ay-digital/backend/internal/service"
	"ay-digital/backend/pkg/response"
)

// SettingsHandler 站点设置 HTTP 处理器
type SettingsHandler struct {
	settingSvc service.SiteSettingService
}

// NewSettingsHandler 创建 SettingsHandler
func NewSettingsHandler(settingSvc service.SiteSettingService) *SettingsHandler {
	return &SettingsHandler{settingSvc: settingSvc}
}

// GetSettings 全部设置（结构化值保持序列化文本）
// GET /api/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	snap, err := h.settingSvc.GetAll(c.Request.Context())
	if err != nil {
		h.handleSettingsError(c, err)
		return
	}

	response.OK(c, gin.H{"settings": snap.Settings, "version": snap.Version})
}

// UpdateSettings 批量写入设置
// POST /api/settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "settings object is required")
		return
	}

	if err := h.settingSvc.Update(c.Request.Context(), req.Settings); err != nil {
		h.handleSettingsError(c, err)
		return
	}

	response.OK(c, nil)
}

// GetMenu 已解码的导航菜单
// GET /api/settings/menu
func (h *SettingsHandler) GetMenu(c *gin.Context) {
	items, err := h.settingSvc.GetMenu(c.Request.Context())
	if err != nil {
		h.handleSettingsError(c, err)
		return
	}

	response.OK(c, gin.H{"items": items})
}

// SaveMenu 整表替换导航菜单
// PUT /api/settings/menu
func (h *SettingsHandler) SaveMenu(c *gin.Context) {
	var req dto.UpdateMenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			response.BadRequest(c, menuValidationMessage(ve))
			return
		}
		response.BadRequest(c, "items array is required")
		return
	}

	if err := h.settingSvc.SaveMenu(c.Request.Context(), req.ToModel()); err != nil {
		h.handleSettingsError(c, err)
		return
	}

	response.OK(c, nil)
}

// GetBranding 品牌名称、Logo 与展示方式
// GET /api/settings/branding
func (h *SettingsHandler) GetBranding(c *gin.Context) {
	b, err := h.settingSvc.GetBranding(c.Request.Context())
	if err != nil {
		h.handleSettingsError(c, err)
		return
	}

	response.OK(c, gin.H{"branding": b})
}

func menuValidationMessage(ve validator.ValidationErrors) string {
	for _, fe := range ve {
		switch fe.Tag() {
		case "menu_label":
			return model.ErrMenuLabelInvalid.Error()
		case "required":
			if fe.Field() == "Path" {
				return model.ErrMenuPathRequired.Error()
			}
		}
	}
	return service.ErrInvalidMenu.Error()
}

// handleSettingsError 统一处理站点设置业务错误
func (h *SettingsHandler) handleSettingsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptySettingKey),
		errors.Is(err, service.ErrInvalidMenu):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c)
	}
}
