package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"gorm.io/gorm"

	"ay-digital/backend/internal/model"
	"ay-digital/backend/internal/repository"
)

// ── 验证码错误 ──
// ErrOTPNotIssued 与 ErrOTPMismatch 均可用 errors.Is(err, ErrInvalidOTP) 匹配

var (
	ErrInvalidOTP   = errors.New("Invalid OTP")
	ErrOTPNotIssued = fmt.Errorf("%w: no code issued", ErrInvalidOTP)
	ErrOTPMismatch  = fmt.Errorf("%w: code mismatch", ErrInvalidOTP)
	ErrOTPExpired   = errors.New("OTP Expired")
)

const (
	otpMin   = 100000
	otpRange = 900000
)

// generateOTP 生成 100000-999999 之间均匀分布的 6 位验证码
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpRange))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", otpMin+n.Int64()), nil
}

// otpManager 验证码签发与校验
// 每个账号同一时刻只保留最近一次签发的验证码
type otpManager struct {
	users    repository.UserRepository
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
}

func newOTPManager(users repository.UserRepository, ttl time.Duration) *otpManager {
	return &otpManager{
		users:    users,
		ttl:      ttl,
		now:      time.Now,
		generate: generateOTP,
	}
}

// Issue 签发验证码并与过期时间一并写入账号
func (m *otpManager) Issue(ctx context.Context, user *model.User) (string, error) {
	code, err := m.generate()
	if err != nil {
		return "", fmt.Errorf("生成验证码失败: %w", err)
	}
	expiresAt := m.now().Add(m.ttl)
	if err := m.users.SetOTP(ctx, user.ID, code, expiresAt); err != nil {
		return "", err
	}
	user.OTP = &code
	user.OTPExpiresAt = &expiresAt
	return code, nil
}

// Match 仅比对验证码，不检查有效期
func (m *otpManager) Match(user *model.User, code string) error {
	if user.OTP == nil {
		return ErrOTPNotIssued
	}
	if subtle.ConstantTimeCompare([]byte(*user.OTP), []byte(code)) != 1 {
		return ErrOTPMismatch
	}
	return nil
}

// Verify 比对验证码并检查有效期；失败时不清除已存储的验证码
func (m *otpManager) Verify(user *model.User, code string) error {
	if err := m.Match(user, code); err != nil {
		return err
	}
	if user.OTPExpiresAt == nil || m.now().After(*user.OTPExpiresAt) {
		return ErrOTPExpired
	}
	return nil
}

// Consume 清除已验证的验证码，并发请求中只有一个能成功
func (m *otpManager) Consume(ctx context.Context, user *model.User, code string) error {
	if err := m.users.ConsumeOTP(ctx, user.ID, code); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOTPNotIssued
		}
		return err
	}
	user.OTP = nil
	user.OTPExpiresAt = nil
	return nil
}
