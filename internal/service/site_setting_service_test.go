package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"ay-digital/backend/internal/model"
)

func setupTestSettingService() (*siteSettingService, *testRepos, *mockCache) {
	repo, repos := newTestRepository()
	cache := newMockCache()
	return NewSiteSettingService(repo, cache, zap.NewNop()).(*siteSettingService), repos, cache
}

func rawSettings(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("测试数据非法: %v", err)
	}
	return m
}

func TestGetAll_SnapshotAndVersion(t *testing.T) {
	svc, repos, _ := setupTestSettingService()
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	repos.settings.put("email", "a@b.c", older)
	repos.settings.put("phone", "123", newer)

	snap, err := svc.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll 应成功: %v", err)
	}
	if len(snap.Settings) != 2 || *snap.Settings["email"] != "a@b.c" {
		t.Errorf("快照内容不符: %+v", snap.Settings)
	}
	if snap.Version != newer.UnixMilli() {
		t.Errorf("期望 Version=%d，实际: %d", newer.UnixMilli(), snap.Version)
	}
}

func TestGetAll_ReadThroughCache(t *testing.T) {
	svc, repos, _ := setupTestSettingService()
	repos.settings.put("email", "a@b.c", time.Now())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.GetAll(ctx); err != nil {
			t.Fatalf("GetAll 应成功: %v", err)
		}
	}
	if repos.settings.lists != 1 {
		t.Errorf("缓存命中后不应再查库，查询次数: %d", repos.settings.lists)
	}

	if err := svc.Update(ctx, rawSettings(t, `{"email":"new@b.c"}`)); err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	snap, _ := svc.GetAll(ctx)
	if *snap.Settings["email"] != "new@b.c" {
		t.Errorf("写入后应读到新值，实际: %s", *snap.Settings["email"])
	}
	if repos.settings.lists != 2 {
		t.Errorf("写入后缓存应失效，查询次数: %d", repos.settings.lists)
	}
}

func TestGetAll_StorageError(t *testing.T) {
	svc, repos, _ := setupTestSettingService()
	repos.settings.listErr = errStorage

	if _, err := svc.GetAll(context.Background()); !errors.Is(err, errStorage) {
		t.Errorf("期望存储错误，实际: %v", err)
	}
}

func TestUpdate_PartialKeepsOtherKeys(t *testing.T) {
	svc, repos, _ := setupTestSettingService()
	repos.settings.put("email", "info@x.io", time.Now())
	repos.settings.put("phone", "111", time.Now())

	if err := svc.Update(context.Background(), rawSettings(t, `{"phone":"222"}`)); err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if got := *repos.settings.rows["email"].Value; got != "info@x.io" {
		t.Errorf("未提交的键应保持不变，实际: %s", got)
	}
	if got := *repos.settings.rows["phone"].Value; got != "222" {
		t.Errorf("期望 phone=222，实际: %s", got)
	}
}

func TestUpdate_ValueEncoding(t *testing.T) {
	svc, repos, _ := setupTestSettingService()

	body := `{
		"plain": "hello \"world\"",
		"menu_items": [ {"label": "Home", "path": "/"} ],
		"count": 42,
		"flag": true,
		"nothing": null
	}`
	if err := svc.Update(context.Background(), rawSettings(t, body)); err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}

	want := map[string]string{
		"plain":      `hello "world"`,
		"menu_items": `[{"label":"Home","path":"/"}]`,
		"count":      "42",
		"flag":       "true",
		"nothing":    "null",
	}
	for k, v := range want {
		row, ok := repos.settings.rows[k]
		if !ok || row.Value == nil {
			t.Errorf("%s 未写入", k)
			continue
		}
		if *row.Value != v {
			t.Errorf("%s: 期望 %q，实际 %q", k, v, *row.Value)
		}
	}
}

func TestUpdate_NoRollbackOnFailure(t *testing.T) {
	svc, repos, cache := setupTestSettingService()
	repos.settings.failKeys["b"] = errStorage

	err := svc.Update(context.Background(), rawSettings(t, `{"a":"1","b":"2","c":"3"}`))
	if !errors.Is(err, errStorage) {
		t.Fatalf("期望存储错误，实际: %v", err)
	}
	if _, ok := repos.settings.rows["a"]; !ok {
		t.Error("失败前已写入的键应保留")
	}
	if _, ok := repos.settings.rows["c"]; ok {
		t.Error("失败后的键不应写入")
	}
	if cache.deletes == 0 {
		t.Error("写入失败也应清除缓存")
	}
}

func TestUpdate_EmptyKey(t *testing.T) {
	svc, repos, _ := setupTestSettingService()

	err := svc.Update(context.Background(), rawSettings(t, `{"":"x","a":"1"}`))
	if !errors.Is(err, ErrEmptySettingKey) {
		t.Fatalf("期望 ErrEmptySettingKey，实际: %v", err)
	}
	if len(repos.settings.rows) != 0 {
		t.Error("存在空键时不应写入任何键")
	}
}

// ── 菜单 ──

func TestGetMenu(t *testing.T) {
	svc, repos, cache := setupTestSettingService()
	ctx := context.Background()

	items, err := svc.GetMenu(ctx)
	if err != nil || len(items) != 0 {
		t.Fatalf("未设置菜单时应返回空列表: %v, %v", items, err)
	}

	repos.settings.put(model.SettingMenuItems, `[{"label":"Home","path":"/","fixed":true},{"label":"Blog","path":"/blog","visible":false}]`, time.Now())
	cache.data = map[string][]byte{}
	items, err = svc.GetMenu(ctx)
	if err != nil {
		t.Fatalf("GetMenu 应成功: %v", err)
	}
	if len(items) != 2 || !items[0].Visible || items[1].Visible {
		t.Errorf("菜单解析不符: %+v", items)
	}

	repos.settings.put(model.SettingMenuItems, `{broken`, time.Now())
	cache.data = map[string][]byte{}
	items, err = svc.GetMenu(ctx)
	if err != nil || len(items) != 0 {
		t.Errorf("损坏的菜单应按空列表处理: %v, %v", items, err)
	}
}

func TestSaveMenu_FixedItemRules(t *testing.T) {
	svc, repos, _ := setupTestSettingService()
	ctx := context.Background()
	if err := svc.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults 应成功: %v", err)
	}

	current, err := svc.GetMenu(ctx)
	if err != nil {
		t.Fatalf("GetMenu 应成功: %v", err)
	}

	// 删除固定项
	withoutHome := current[1:]
	if err := svc.SaveMenu(ctx, withoutHome); !errors.Is(err, ErrInvalidMenu) {
		t.Errorf("删除固定项期望 ErrInvalidMenu，实际: %v", err)
	}

	// 修改文字与顺序
	next, _ := current.Rename(0, "Start")
	next, _ = next.Move(3, -1)
	next, _ = next.Add("Blog", "/blog")
	if err := svc.SaveMenu(ctx, next); err != nil {
		t.Fatalf("合法菜单应保存成功: %v", err)
	}

	saved, err := model.ParseMenuItems(*repos.settings.rows[model.SettingMenuItems].Value)
	if err != nil {
		t.Fatalf("保存的菜单应可解析: %v", err)
	}
	if len(saved) != 5 || saved[0].Label != "Start" || saved[2].Label != "Contact" || saved[4].Path != "/blog" {
		t.Errorf("保存结果不符: %+v", saved)
	}
}

func TestSaveMenu_InvalidLabel(t *testing.T) {
	svc, _, _ := setupTestSettingService()

	err := svc.SaveMenu(context.Background(), model.MenuItems{{Label: "Bad_Label!", Path: "/x", Visible: true}})
	if !errors.Is(err, ErrInvalidMenu) {
		t.Errorf("期望 ErrInvalidMenu，实际: %v", err)
	}
}

func TestSaveMenu_CorruptStoredMenu(t *testing.T) {
	svc, repos, _ := setupTestSettingService()
	repos.settings.put(model.SettingMenuItems, `not json`, time.Now())

	if err := svc.SaveMenu(context.Background(), model.MenuItems{{Label: "Home", Path: "/", Visible: true}}); err != nil {
		t.Errorf("已存储菜单损坏时应允许覆盖: %v", err)
	}
}

// ── 品牌与默认值 ──

func TestGetBranding(t *testing.T) {
	svc, repos, _ := setupTestSettingService()
	repos.settings.put(model.SettingBrandName, "AY", time.Now())
	repos.settings.put(model.SettingBrandDisplay, "sideways", time.Now())

	b, err := svc.GetBranding(context.Background())
	if err != nil {
		t.Fatalf("GetBranding 应成功: %v", err)
	}
	if b.Name != "AY" || b.Display != model.BrandDisplayBoth || b.Logo != "" {
		t.Errorf("品牌信息不符: %+v", b)
	}
}

func TestSeedDefaults_KeepsExisting(t *testing.T) {
	svc, repos, _ := setupTestSettingService()
	repos.settings.put(model.SettingEmail, "custom@x.io", time.Now())

	if err := svc.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("SeedDefaults 应成功: %v", err)
	}
	if got := *repos.settings.rows[model.SettingEmail].Value; got != "custom@x.io" {
		t.Errorf("已有设置不应被覆盖，实际: %s", got)
	}
	if got := *repos.settings.rows[model.SettingBrandDisplay].Value; got != model.BrandDisplayBoth {
		t.Errorf("期望 brand_display=both，实际: %s", got)
	}
	if len(repos.settings.rows) != len(model.DefaultSettings()) {
		t.Errorf("期望 %d 个设置，实际: %d", len(model.DefaultSettings()), len(repos.settings.rows))
	}
}
