package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ay-digital/backend/internal/dto"
	"ay-digital/backend/internal/model"
	"ay-digital/backend/internal/repository"
	"ay-digital/backend/pkg/redis"
)

// ── 站点设置业务错误 ──

var (
	ErrEmptySettingKey = errors.New("Setting key must not be empty")
	ErrInvalidMenu     = errors.New("Invalid menu")
)

const (
	settingsCacheKey = "settings:snapshot"
	settingsCacheTTL = 5 * time.Minute
)

// SettingsCache 设置快照缓存，*redis.Client 为 nil 时所有操作退化为未命中
type SettingsCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// SiteSettingService 站点设置业务接口
type SiteSettingService interface {
	GetAll(ctx context.Context) (*dto.SettingsSnapshot, error)
	Update(ctx context.Context, settings map[string]json.RawMessage) error
	GetMenu(ctx context.Context) (model.MenuItems, error)
	SaveMenu(ctx context.Context, items model.MenuItems) error
	GetBranding(ctx context.Context) (*model.Branding, error)
	SeedDefaults(ctx context.Context) error
}

type siteSettingService struct {
	repo   *repository.Repository
	cache  SettingsCache
	logger *zap.Logger
}

// NewSiteSettingService 创建 SiteSettingService 实例
func NewSiteSettingService(repo *repository.Repository, cache SettingsCache, logger *zap.Logger) SiteSettingService {
	return &siteSettingService{repo: repo, cache: cache, logger: logger}
}

// ────────────────────── GetAll ──────────────────────

// GetAll 读取设置快照，优先命中缓存
func (s *siteSettingService) GetAll(ctx context.Context) (*dto.SettingsSnapshot, error) {
	var cached dto.SettingsSnapshot
	err := s.cache.GetJSON(ctx, settingsCacheKey, &cached)
	if err == nil && cached.Settings != nil {
		return &cached, nil
	}
	if err != nil && !errors.Is(err, redis.ErrCacheMiss) {
		s.logger.Warn("读取设置缓存失败", zap.Error(err))
	}

	rows, err := s.repo.SiteSetting.List(ctx)
	if err != nil {
		s.logger.Error("查询站点设置失败", zap.Error(err))
		return nil, err
	}

	snapshot := &dto.SettingsSnapshot{Settings: make(map[string]*string, len(rows))}
	for _, row := range rows {
		snapshot.Settings[row.Key] = row.Value
		if v := row.UpdatedAt.UnixMilli(); v > snapshot.Version {
			snapshot.Version = v
		}
	}

	if err := s.cache.SetJSON(ctx, settingsCacheKey, snapshot, settingsCacheTTL); err != nil {
		s.logger.Warn("写入设置缓存失败", zap.Error(err))
	}
	return snapshot, nil
}

// ────────────────────── Update ──────────────────────

// Update 逐键写入，每个键独立提交；中途失败时已写入的键保留
func (s *siteSettingService) Update(ctx context.Context, settings map[string]json.RawMessage) error {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		if k == "" {
			return ErrEmptySettingKey
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	defer s.invalidate(ctx)

	for _, k := range keys {
		value, err := encodeSettingValue(settings[k])
		if err != nil {
			return fmt.Errorf("设置 %s 的值无法解析: %w", k, err)
		}
		if err := s.repo.SiteSetting.Upsert(ctx, k, &value); err != nil {
			s.logger.Error("写入站点设置失败", zap.String("key", k), zap.Error(err))
			return err
		}
	}

	s.logger.Info("站点设置已更新", zap.Strings("keys", keys))
	return nil
}

// encodeSettingValue 字符串原样存储，其他 JSON 值（含 null）存为紧凑 JSON 文本
func encodeSettingValue(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "null", nil
	}
	if trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(trimmed, &str); err != nil {
			return "", err
		}
		return str, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ────────────────────── Menu ──────────────────────

// GetMenu 解码 menu_items；存储内容损坏时返回空列表
func (s *siteSettingService) GetMenu(ctx context.Context) (model.MenuItems, error) {
	snapshot, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	raw := snapshot.Settings[model.SettingMenuItems]
	if raw == nil {
		return model.MenuItems{}, nil
	}
	items, err := model.ParseMenuItems(*raw)
	if err != nil {
		s.logger.Warn("菜单数据无法解析，按空列表处理", zap.Error(err))
		return model.MenuItems{}, nil
	}
	return items, nil
}

// SaveMenu 整表替换菜单，固定项规则以当前存储的列表为基准
func (s *siteSettingService) SaveMenu(ctx context.Context, items model.MenuItems) error {
	prev, err := s.storedMenu(ctx)
	if err != nil {
		return err
	}
	if err := items.ValidateAgainst(prev); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMenu, err)
	}

	encoded, err := items.Encode()
	if err != nil {
		return err
	}

	defer s.invalidate(ctx)
	if err := s.repo.SiteSetting.Upsert(ctx, model.SettingMenuItems, &encoded); err != nil {
		s.logger.Error("保存菜单失败", zap.Error(err))
		return err
	}

	s.logger.Info("菜单已保存", zap.Int("items", len(items)))
	return nil
}

func (s *siteSettingService) storedMenu(ctx context.Context) (model.MenuItems, error) {
	var prev model.MenuItems
	err := s.repo.SiteSetting.ScanValue(ctx, model.SettingMenuItems, &prev)
	switch {
	case err == nil:
		return prev, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case errors.Is(err, model.ErrMenuDecode):
		s.logger.Warn("已存储菜单无法解析，跳过固定项校验", zap.Error(err))
		return nil, nil
	default:
		s.logger.Error("读取菜单失败", zap.Error(err))
		return nil, err
	}
}

// ────────────────────── Branding ──────────────────────

func (s *siteSettingService) GetBranding(ctx context.Context) (*model.Branding, error) {
	snapshot, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	b := model.BrandingFromSettings(snapshot.Settings)
	return &b, nil
}

// ────────────────────── SeedDefaults ──────────────────────

// SeedDefaults 写入缺失的默认设置，已有值不覆盖
func (s *siteSettingService) SeedDefaults(ctx context.Context) error {
	defaults := model.DefaultSettings()
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	defer s.invalidate(ctx)
	for _, k := range keys {
		if err := s.repo.SiteSetting.InsertIfAbsent(ctx, k, defaults[k]); err != nil {
			s.logger.Error("写入默认设置失败", zap.String("key", k), zap.Error(err))
			return err
		}
	}
	return nil
}

func (s *siteSettingService) invalidate(ctx context.Context) {
	if err := s.cache.Delete(context.WithoutCancel(ctx), settingsCacheKey); err != nil {
		s.logger.Warn("清除设置缓存失败", zap.Error(err))
	}
}
