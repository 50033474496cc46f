package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"
)

const (
	// MenuLabelMaxLen 菜单文字最大长度
	MenuLabelMaxLen = 20

	defaultMenuLabel = "New Link"
	defaultMenuPath  = "/"
)

var (
	ErrMenuItemFixed       = errors.New("fixed menu items cannot be removed or re-pathed")
	ErrMenuIndexOutOfRange = errors.New("menu item index out of range")
	ErrMenuLabelInvalid    = errors.New("menu label must be 1-20 letters, digits, spaces or hyphens")
	ErrMenuPathRequired    = errors.New("menu path is required")
	ErrMenuDecode          = errors.New("解析菜单失败")
)

var menuLabelPattern = regexp.MustCompile(`^[A-Za-z0-9 \-]+$`)

// ValidMenuLabel 菜单文字校验：1-20 个字母、数字、空格或连字符
func ValidMenuLabel(label string) bool {
	n := utf8.RuneCountInString(label)
	return n >= 1 && n <= MenuLabelMaxLen && menuLabelPattern.MatchString(label)
}

// MenuItem 导航菜单项
// Fixed 项不可删除、不可修改路径，文字仍可修改
type MenuItem struct {
	Label   string `json:"label"`
	Path    string `json:"path"`
	Visible bool   `json:"visible"`
	Fixed   bool   `json:"fixed"`
}

// UnmarshalJSON 旧数据没有 visible 字段，缺省视为可见
func (m *MenuItem) UnmarshalJSON(data []byte) error {
	type plain MenuItem
	item := plain{Visible: true}
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*m = MenuItem(item)
	return nil
}

// MenuItems 有序菜单列表，持久化为 menu_items 的 JSON 文本
// 所有编辑操作返回新列表，不修改接收者
type MenuItems []MenuItem

// ParseMenuItems 反序列化 menu_items 设置值，空文本视为空列表
func ParseMenuItems(raw string) (MenuItems, error) {
	if raw == "" {
		return MenuItems{}, nil
	}
	var items MenuItems
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMenuDecode, err)
	}
	if items == nil {
		items = MenuItems{}
	}
	return items, nil
}

// Encode 序列化为设置值文本
func (m MenuItems) Encode() (string, error) {
	if m == nil {
		m = MenuItems{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner
func (m *MenuItems) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("MenuItems.Scan: unsupported type %T", src)
	}
	items, err := ParseMenuItems(s)
	if err != nil {
		return err
	}
	*m = items
	return nil
}

// Value 实现 driver.Valuer
func (m MenuItems) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return m.Encode()
}

func (m MenuItems) clone() MenuItems {
	out := make(MenuItems, len(m))
	copy(out, m)
	return out
}

func (m MenuItems) check(i int) error {
	if i < 0 || i >= len(m) {
		return ErrMenuIndexOutOfRange
	}
	return nil
}

// ── 编辑操作 ──

// Add 追加菜单项，文字或路径为空时使用默认值
func (m MenuItems) Add(label, path string) (MenuItems, error) {
	if label == "" {
		label = defaultMenuLabel
	}
	if path == "" {
		path = defaultMenuPath
	}
	if !ValidMenuLabel(label) {
		return nil, ErrMenuLabelInvalid
	}
	return append(m.clone(), MenuItem{Label: label, Path: path, Visible: true}), nil
}

// Remove 删除第 i 项
func (m MenuItems) Remove(i int) (MenuItems, error) {
	if err := m.check(i); err != nil {
		return nil, err
	}
	if m[i].Fixed {
		return nil, ErrMenuItemFixed
	}
	out := make(MenuItems, 0, len(m)-1)
	out = append(out, m[:i]...)
	return append(out, m[i+1:]...), nil
}

// Move 与相邻项交换位置，delta 为 -1（上移）或 1（下移）；越过边界时不变
func (m MenuItems) Move(i, delta int) (MenuItems, error) {
	if err := m.check(i); err != nil {
		return nil, err
	}
	if delta != -1 && delta != 1 {
		return nil, fmt.Errorf("move delta must be -1 or 1, got %d", delta)
	}
	out := m.clone()
	j := i + delta
	if j < 0 || j >= len(out) {
		return out, nil
	}
	out[i], out[j] = out[j], out[i]
	return out, nil
}

// ToggleVisible 切换第 i 项的可见性
func (m MenuItems) ToggleVisible(i int) (MenuItems, error) {
	if err := m.check(i); err != nil {
		return nil, err
	}
	out := m.clone()
	out[i].Visible = !out[i].Visible
	return out, nil
}

// Rename 修改第 i 项的文字（固定项同样允许）
func (m MenuItems) Rename(i int, label string) (MenuItems, error) {
	if err := m.check(i); err != nil {
		return nil, err
	}
	if !ValidMenuLabel(label) {
		return nil, ErrMenuLabelInvalid
	}
	out := m.clone()
	out[i].Label = label
	return out, nil
}

// SetPath 修改第 i 项的路径
func (m MenuItems) SetPath(i int, path string) (MenuItems, error) {
	if err := m.check(i); err != nil {
		return nil, err
	}
	if m[i].Fixed {
		return nil, ErrMenuItemFixed
	}
	if path == "" {
		return nil, ErrMenuPathRequired
	}
	out := m.clone()
	out[i].Path = path
	return out, nil
}

// ── 校验 ──

// Validate 校验每一项的文字与路径
func (m MenuItems) Validate() error {
	for i, item := range m {
		if !ValidMenuLabel(item.Label) {
			return fmt.Errorf("item %d: %w", i, ErrMenuLabelInvalid)
		}
		if item.Path == "" {
			return fmt.Errorf("item %d: %w", i, ErrMenuPathRequired)
		}
	}
	return nil
}

// ValidateAgainst 以 prev 为基准校验整表替换：prev 中的固定项必须以相同路径保留且仍为固定项
func (m MenuItems) ValidateAgainst(prev MenuItems) error {
	if err := m.Validate(); err != nil {
		return err
	}
	for _, old := range prev {
		if !old.Fixed {
			continue
		}
		kept := false
		for _, item := range m {
			if item.Fixed && item.Path == old.Path {
				kept = true
				break
			}
		}
		if !kept {
			return fmt.Errorf("%q (%s): %w", old.Label, old.Path, ErrMenuItemFixed)
		}
	}
	return nil
}
