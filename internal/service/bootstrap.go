package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ay-digital/backend/config"
	"ay-digital/backend/internal/model"
	"ay-digital/backend/internal/repository"
	pkgerrors "ay-digital/backend/pkg/errors"
)

// ── 首次启动种子数据 ──

// SeedAdmin 系统中没有管理员时创建初始管理员
func SeedAdmin(ctx context.Context, cfg *config.BootstrapConfig, repo *repository.Repository, logger *zap.Logger) error {
	n, err := repo.User.CountByRole(ctx, model.RoleAdmin)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := hashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	name := cfg.AdminName
	admin := &model.User{
		Name:     &name,
		Email:    cfg.AdminEmail,
		Password: &hash,
		Role:     model.RoleAdmin,
	}
	if err := repo.User.Create(ctx, admin); err != nil {
		if errors.Is(err, pkgerrors.ErrDuplicateKey) {
			logger.Warn("初始管理员邮箱已被占用，跳过创建", zap.String("email", cfg.AdminEmail))
			return nil
		}
		return err
	}

	logger.Info("已创建初始管理员", zap.Int64("user_id", admin.ID), zap.String("email", admin.Email))
	return nil
}

// demoProvisioner 首次使用演示账号登录时创建学生账号
type demoProvisioner struct {
	cfg    *config.BootstrapConfig
	users  repository.UserRepository
	logger *zap.Logger
}

// NewDemoProvisioner 创建演示账号 hook
func NewDemoProvisioner(cfg *config.BootstrapConfig, users repository.UserRepository, logger *zap.Logger) DemoProvisioner {
	return &demoProvisioner{cfg: cfg, users: users, logger: logger}
}

func (p *demoProvisioner) Provision(ctx context.Context, email, password string) (*model.User, bool, error) {
	if p.cfg.DemoEmail == "" || email != p.cfg.DemoEmail || password != p.cfg.DemoPassword {
		return nil, false, nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, false, err
	}
	name := p.cfg.DemoName
	user := &model.User{
		Name:     &name,
		Email:    email,
		Password: &hash,
		Role:     model.RoleStudent,
	}
	if err := p.users.Create(ctx, user); err != nil {
		if !errors.Is(err, pkgerrors.ErrDuplicateKey) {
			return nil, false, err
		}
		// 并发登录时由另一请求创建
		existing, err := p.users.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, false, nil
			}
			return nil, false, err
		}
		return existing, true, nil
	}

	p.logger.Info("已创建演示账号", zap.Int64("user_id", user.ID))
	return user, true, nil
}
