package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ay-digital/backend/internal/model"
)

// SiteSettingRepository 站点设置数据访问接口
type SiteSettingRepository interface {
	List(ctx context.Context) ([]model.SiteSetting, error)
	ScanValue(ctx context.Context, key string, dest sql.Scanner) error
	Upsert(ctx context.Context, key string, value *string) error
	InsertIfAbsent(ctx context.Context, key string, value string) error
}

type siteSettingRepo struct {
	db *gorm.DB
}

// NewSiteSettingRepo 创建 SiteSettingRepository 实例
func NewSiteSettingRepo(db *gorm.DB) SiteSettingRepository {
	return &siteSettingRepo{db: db}
}

func (r *siteSettingRepo) List(ctx context.Context) ([]model.SiteSetting, error) {
	var settings []model.SiteSetting
	err := r.db.WithContext(ctx).
		Order("key ASC").
		Find(&settings).Error
	return settings, err
}

// ScanValue 将单个键的值直接扫描到结构化类型（如 model.MenuItems）
func (r *siteSettingRepo) ScanValue(ctx context.Context, key string, dest sql.Scanner) error {
	row := r.db.WithContext(ctx).
		Model(&model.SiteSetting{}).
		Select("value").
		Where("key = ?", key).
		Row()
	if err := row.Scan(dest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return gorm.ErrRecordNotFound
		}
		return err
	}
	return nil
}

// Upsert 键不存在则插入，存在则覆盖值
func (r *siteSettingRepo) Upsert(ctx context.Context, key string, value *string) error {
	setting := model.SiteSetting{Key: key, Value: value, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).Error
}

// InsertIfAbsent 仅在键不存在时写入（默认值种子）
func (r *siteSettingRepo) InsertIfAbsent(ctx context.Context, key string, value string) error {
	setting := model.SiteSetting{Key: key, Value: &value, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&setting).Error
}
