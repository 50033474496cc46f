package dto

import (
	"encoding/json"

	"ay-digital/backend/internal/model"
)

// ── 站点设置 DTO ──

// UpdateSettingsRequest 批量写入设置，值可以是字符串或任意 JSON
type UpdateSettingsRequest struct {
	Settings map[string]json.RawMessage `json:"settings" binding:"required"`
}

// SettingsSnapshot 设置快照，Version 为最后更新时间（毫秒）
type SettingsSnapshot struct {
	Version  int64              `json:"version"`
	Settings map[string]*string `json:"settings"`
}

// MenuItemRequest 菜单项
type MenuItemRequest struct {
	Label   string `json:"label"   binding:"menu_label"`
	Path    string `json:"path"    binding:"required"`
	Visible *bool  `json:"visible"`
	Fixed   bool   `json:"fixed"`
}

// UpdateMenuRequest 整表替换菜单
type UpdateMenuRequest struct {
	Items []MenuItemRequest `json:"items" binding:"required,dive"`
}

// ToModel 转换为 model.MenuItems，visible 缺省为 true
func (r *UpdateMenuRequest) ToModel() model.MenuItems {
	items := make(model.MenuItems, 0, len(r.Items))
	for _, it := range r.Items {
		visible := true
		if it.Visible != nil {
			visible = *it.Visible
		}
		items = append(items, model.MenuItem{
			Label:   it.Label,
			Path:    it.Path,
			Visible: visible,
			Fixed:   it.Fixed,
		})
	}
	return items
}
