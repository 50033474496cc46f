package model

import (
	"encoding/json"
	"time"
)

// SiteSetting 站点设置表 — 对应 site_settings（键值对）
// menu_items、brand_logo 以序列化文本存储在 Value 中
type SiteSetting struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"                 json:"-"`
	Key       string    `gorm:"type:varchar(255);not null;uniqueIndex"   json:"key"`
	Value     *string   `gorm:"type:text"                                json:"value"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"       json:"updated_at"`
}

// TableName 指定表名
func (SiteSetting) TableName() string { return "site_settings" }

// 已知设置键
const (
	SettingEmail        = "email"
	SettingPhone        = "phone"
	SettingWhatsApp     = "whatsapp"
	SettingAddress      = "address"
	SettingBrandName    = "brand_name"
	SettingBrandLogo    = "brand_logo"
	SettingBrandDisplay = "brand_display"
	SettingMenuItems    = "menu_items"
)

// ── 品牌 ──

// 品牌展示方式
const (
	BrandDisplayName = "name"
	BrandDisplayLogo = "logo"
	BrandDisplayBoth = "both"
)

// Branding 品牌信息视图
type Branding struct {
	Name    string `json:"name"`
	Logo    string `json:"logo"`
	Display string `json:"display"`
}

// BrandingFromSettings 从键值设置构造品牌视图，展示方式非法时回落为 both
func BrandingFromSettings(settings map[string]*string) Branding {
	b := Branding{
		Name:    deref(settings[SettingBrandName]),
		Logo:    deref(settings[SettingBrandLogo]),
		Display: deref(settings[SettingBrandDisplay]),
	}
	switch b.Display {
	case BrandDisplayName, BrandDisplayLogo, BrandDisplayBoth:
	default:
		b.Display = BrandDisplayBoth
	}
	return b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ── 默认值 ──

// DefaultMenu 默认导航菜单，首页为固定项
func DefaultMenu() MenuItems {
	return MenuItems{
		{Label: "Home", Path: "/", Visible: true, Fixed: true},
		{Label: "About", Path: "/about", Visible: true},
		{Label: "Courses", Path: "/courses", Visible: true},
		{Label: "Contact", Path: "/contact", Visible: true},
	}
}

// DefaultSettings 首次启动写入的默认设置（已存在的键不覆盖）
func DefaultSettings() map[string]string {
	menu, _ := json.Marshal(DefaultMenu())
	return map[string]string{
		SettingEmail:        "info@aydigital.com",
		SettingPhone:        "+91 98765 43210",
		SettingWhatsApp:     "+91 98765 43210",
		SettingAddress:      "Ay Digital Institute, Main Road, City",
		SettingBrandName:    "AY Digital Institute",
		SettingBrandLogo:    "",
		SettingBrandDisplay: BrandDisplayBoth,
		SettingMenuItems:    string(menu),
	}
}
