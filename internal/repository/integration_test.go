//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ay-digital/backend/internal/model"
	"ay-digital/backend/internal/repository"
	"ay-digital/backend/pkg/database"
	pkgerrors "ay-digital/backend/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=postgres password=postgres dbname=ay_digital_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.test", prefix, time.Now().UnixNano())
}

func createUser(t *testing.T, repo *repository.Repository, email string) *model.User {
	t.Helper()
	pw := "$2a$04$placeholder"
	u := &model.User{Email: email, Password: &pw, Role: model.RoleStudent}
	if err := repo.User.Create(context.Background(), u); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	t.Cleanup(func() { testDB.Where("id = ?", u.ID).Delete(&model.User{}) })
	return u
}

// ═══════════════════════════════════════════════════════════
// Test: users
// ═══════════════════════════════════════════════════════════

func TestUser_DuplicateEmail(t *testing.T) {
	repo := repository.NewRepository(testDB)
	email := uniqueEmail("dup")
	createUser(t, repo, email)

	err := repo.User.Create(context.Background(), &model.User{Email: email, Role: model.RoleStudent})
	if err != pkgerrors.ErrDuplicateKey {
		t.Fatalf("期望 ErrDuplicateKey，实际: %v", err)
	}
}

func TestUser_OTPConsumedOnce(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	u := createUser(t, repo, uniqueEmail("otp"))

	if err := repo.User.SetOTP(ctx, u.ID, "123456", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("SetOTP 失败: %v", err)
	}
	if err := repo.User.ConsumeOTP(ctx, u.ID, "123456"); err != nil {
		t.Fatalf("首次 ConsumeOTP 失败: %v", err)
	}
	if err := repo.User.ConsumeOTP(ctx, u.ID, "123456"); err != gorm.ErrRecordNotFound {
		t.Fatalf("期望第二次 ConsumeOTP 返回 ErrRecordNotFound，实际: %v", err)
	}

	got, err := repo.User.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if got.OTP != nil || got.OTPExpiresAt != nil {
		t.Errorf("验证码使用后应被清空，实际: otp=%v exp=%v", got.OTP, got.OTPExpiresAt)
	}
}

func TestUser_UpdateContact(t *testing.T) {
	repo := repository.NewRepository(testDB)
	u := createUser(t, repo, uniqueEmail("contact"))

	addr, phone := "Main Road", "555"
	got, err := repo.User.UpdateContact(context.Background(), u.ID, &addr, &phone)
	if err != nil {
		t.Fatalf("UpdateContact 失败: %v", err)
	}
	if got.Email != u.Email || got.Address == nil || *got.Address != addr {
		t.Errorf("RETURNING 结果不符: %+v", got)
	}

	if _, err := repo.User.UpdateContact(context.Background(), -1, &addr, &phone); err != gorm.ErrRecordNotFound {
		t.Errorf("期望 ErrRecordNotFound，实际: %v", err)
	}
}

func TestUser_CreateBatch_Atomic(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	existing := createUser(t, repo, uniqueEmail("batch"))
	fresh := uniqueEmail("batch-fresh")

	err := repo.User.CreateBatch(ctx, []model.User{
		{Email: fresh, Role: model.RoleStudent},
		{Email: existing.Email, Role: model.RoleStudent},
	})
	if err != pkgerrors.ErrDuplicateKey {
		t.Fatalf("期望 ErrDuplicateKey，实际: %v", err)
	}
	if _, err := repo.User.GetByEmail(ctx, fresh); err != gorm.ErrRecordNotFound {
		testDB.Where("email = ?", fresh).Delete(&model.User{})
		t.Fatalf("期望事务回滚后查不到 %s，实际: %v", fresh, err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: site_settings
// ═══════════════════════════════════════════════════════════

func TestSiteSetting_UpsertAndInsertIfAbsent(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	key := fmt.Sprintf("it_key_%d", time.Now().UnixNano())
	t.Cleanup(func() { testDB.Where("key = ?", key).Delete(&model.SiteSetting{}) })

	if err := repo.SiteSetting.InsertIfAbsent(ctx, key, "seed"); err != nil {
		t.Fatalf("InsertIfAbsent 失败: %v", err)
	}
	v := "updated"
	if err := repo.SiteSetting.Upsert(ctx, key, &v); err != nil {
		t.Fatalf("Upsert 失败: %v", err)
	}
	if err := repo.SiteSetting.InsertIfAbsent(ctx, key, "seed-again"); err != nil {
		t.Fatalf("重复 InsertIfAbsent 失败: %v", err)
	}

	list, err := repo.SiteSetting.List(ctx)
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	for _, s := range list {
		if s.Key == key {
			if s.Value == nil || *s.Value != "updated" {
				t.Errorf("期望值 updated，实际: %v", s.Value)
			}
			return
		}
	}
	t.Errorf("未找到键 %s", key)
}
