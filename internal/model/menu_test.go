package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMenu() MenuItems {
	return MenuItems{
		{Label: "Home", Path: "/", Visible: true, Fixed: true},
		{Label: "About", Path: "/about", Visible: true},
		{Label: "Contact", Path: "/contact", Visible: false},
	}
}

func TestValidMenuLabel(t *testing.T) {
	tests := []struct {
		label string
		want  bool
	}{
		{"Home", true},
		{"Our Courses", true},
		{"E-Learning 2", true},
		{strings.Repeat("a", 20), true},
		{strings.Repeat("a", 21), false},
		{"", false},
		{"About!", false},
		{"Über", false},
		{"<script>", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidMenuLabel(tt.label), "label=%q", tt.label)
	}
}

func TestParseMenuItems(t *testing.T) {
	t.Run("旧格式缺省 visible 视为可见", func(t *testing.T) {
		items, err := ParseMenuItems(`[{"label":"Home","path":"/"},{"label":"Hidden","path":"/h","visible":false}]`)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.True(t, items[0].Visible)
		assert.False(t, items[0].Fixed)
		assert.False(t, items[1].Visible)
	})

	t.Run("空文本", func(t *testing.T) {
		items, err := ParseMenuItems("")
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("null", func(t *testing.T) {
		items, err := ParseMenuItems("null")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("非法 JSON", func(t *testing.T) {
		_, err := ParseMenuItems("{not json")
		assert.ErrorIs(t, err, ErrMenuDecode)
	})
}

func TestMenuItems_EncodeDecode(t *testing.T) {
	raw, err := sampleMenu().Encode()
	require.NoError(t, err)

	back, err := ParseMenuItems(raw)
	require.NoError(t, err)
	assert.Equal(t, sampleMenu(), back)

	empty, err := MenuItems(nil).Encode()
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)
}

func TestMenuItems_ScanValue(t *testing.T) {
	v, err := sampleMenu().Value()
	require.NoError(t, err)

	var scanned MenuItems
	require.NoError(t, scanned.Scan([]byte(v.(string))))
	assert.Equal(t, sampleMenu(), scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)

	assert.Error(t, scanned.Scan(42))
}

func TestMenuItems_Add(t *testing.T) {
	m := sampleMenu()

	out, err := m.Add("", "")
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, MenuItem{Label: "New Link", Path: "/", Visible: true}, out[3])
	assert.Len(t, m, 3, "原列表不应被修改")

	_, err = m.Add("Bad/Label", "/x")
	assert.ErrorIs(t, err, ErrMenuLabelInvalid)
}

func TestMenuItems_Remove(t *testing.T) {
	m := sampleMenu()

	_, err := m.Remove(0)
	assert.ErrorIs(t, err, ErrMenuItemFixed)

	out, err := m.Remove(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Home", "Contact"}, labels(out))
	assert.Equal(t, "About", m[1].Label, "原列表不应被修改")

	_, err = m.Remove(3)
	assert.ErrorIs(t, err, ErrMenuIndexOutOfRange)
}

func TestMenuItems_Move(t *testing.T) {
	m := sampleMenu()

	down, err := m.Move(1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Home", "Contact", "About"}, labels(down))

	up, err := m.Move(1, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"About", "Home", "Contact"}, labels(up))

	edgeTop, err := m.Move(0, -1)
	require.NoError(t, err)
	assert.Equal(t, labels(m), labels(edgeTop))

	edgeBottom, err := m.Move(2, 1)
	require.NoError(t, err)
	assert.Equal(t, labels(m), labels(edgeBottom))

	_, err = m.Move(1, 2)
	assert.Error(t, err)

	assert.Equal(t, []string{"Home", "About", "Contact"}, labels(m), "原列表不应被修改")
}

func TestMenuItems_ToggleRenameSetPath(t *testing.T) {
	m := sampleMenu()

	toggled, err := m.ToggleVisible(2)
	require.NoError(t, err)
	assert.True(t, toggled[2].Visible)
	assert.False(t, m[2].Visible)

	renamed, err := m.Rename(0, "Start")
	require.NoError(t, err, "固定项允许修改文字")
	assert.Equal(t, "Start", renamed[0].Label)

	_, err = m.Rename(1, strings.Repeat("x", 21))
	assert.ErrorIs(t, err, ErrMenuLabelInvalid)

	_, err = m.SetPath(0, "/home")
	assert.ErrorIs(t, err, ErrMenuItemFixed)

	_, err = m.SetPath(1, "")
	assert.ErrorIs(t, err, ErrMenuPathRequired)

	moved, err := m.SetPath(1, "/about-us")
	require.NoError(t, err)
	assert.Equal(t, "/about-us", moved[1].Path)
}

func TestMenuItems_ValidateAgainst(t *testing.T) {
	prev := sampleMenu()

	t.Run("重命名固定项并重排", func(t *testing.T) {
		next := MenuItems{
			{Label: "About", Path: "/about", Visible: true},
			{Label: "Start", Path: "/", Visible: true, Fixed: true},
		}
		assert.NoError(t, next.ValidateAgainst(prev))
	})

	t.Run("删除固定项", func(t *testing.T) {
		next := MenuItems{{Label: "About", Path: "/about", Visible: true}}
		assert.ErrorIs(t, next.ValidateAgainst(prev), ErrMenuItemFixed)
	})

	t.Run("修改固定项路径", func(t *testing.T) {
		next := MenuItems{{Label: "Home", Path: "/home", Visible: true, Fixed: true}}
		assert.ErrorIs(t, next.ValidateAgainst(prev), ErrMenuItemFixed)
	})

	t.Run("非法文字", func(t *testing.T) {
		next := append(sampleMenu(), MenuItem{Label: "a@b", Path: "/x"})
		assert.ErrorIs(t, next.ValidateAgainst(prev), ErrMenuLabelInvalid)
	})
}

func TestDefaultSettings(t *testing.T) {
	defaults := DefaultSettings()

	assert.Equal(t, BrandDisplayBoth, defaults[SettingBrandDisplay])
	assert.Equal(t, "", defaults[SettingBrandLogo])

	menu, err := ParseMenuItems(defaults[SettingMenuItems])
	require.NoError(t, err)
	assert.Equal(t, []string{"Home", "About", "Courses", "Contact"}, labels(menu))
	assert.True(t, menu[0].Fixed)
	assert.NoError(t, menu.Validate())
}

func TestBrandingFromSettings(t *testing.T) {
	name, logo, display := "AY", "data:image/png;base64,AA==", "logo"
	b := BrandingFromSettings(map[string]*string{
		SettingBrandName:    &name,
		SettingBrandLogo:    &logo,
		SettingBrandDisplay: &display,
	})
	assert.Equal(t, Branding{Name: "AY", Logo: logo, Display: "logo"}, b)

	bogus := "sideways"
	b = BrandingFromSettings(map[string]*string{SettingBrandDisplay: &bogus})
	assert.Equal(t, BrandDisplayBoth, b.Display)
	assert.Empty(t, b.Name)

	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"","logo":"","display":"both"}`, string(raw))
}

func labels(m MenuItems) []string {
	out := make([]string, len(m))
	for i, item := range m {
		out[i] = item.Label
	}
	return out
}
