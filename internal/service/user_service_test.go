package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"ay-digital/backend/internal/dto"
	"ay-digital/backend/internal/model"
)

func setupTestUserService() (*userService, *testRepos) {
	repo, repos := newTestRepository()
	return NewUserService(repo, zap.NewNop()).(*userService), repos
}

// ── UpdateProfile ──

func TestUpdateProfile_Success(t *testing.T) {
	svc, repos := setupTestUserService()
	user := createTestUser(t, repos.users, "alice@test.com", "secret1", model.RoleStudent)

	profile, err := svc.UpdateProfile(context.Background(), &dto.UpdateProfileRequest{
		ID: user.ID, Address: strPtr("12 Park St"), Phone: strPtr("555-0100"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile 应成功: %v", err)
	}
	if profile.Address == nil || *profile.Address != "12 Park St" {
		t.Errorf("地址未更新: %v", profile.Address)
	}
	if profile.Phone == nil || *profile.Phone != "555-0100" {
		t.Errorf("电话未更新: %v", profile.Phone)
	}
}

func TestUpdateProfile_OmittedFieldsCleared(t *testing.T) {
	svc, repos := setupTestUserService()
	user := createTestUser(t, repos.users, "alice@test.com", "secret1", model.RoleStudent)
	ctx := context.Background()

	_, _ = svc.UpdateProfile(ctx, &dto.UpdateProfileRequest{ID: user.ID, Address: strPtr("A"), Phone: strPtr("P")})
	profile, err := svc.UpdateProfile(ctx, &dto.UpdateProfileRequest{ID: user.ID, Phone: strPtr("P2")})
	if err != nil {
		t.Fatalf("UpdateProfile 应成功: %v", err)
	}
	if profile.Address != nil {
		t.Errorf("未提供的地址应置空，实际: %v", *profile.Address)
	}
}

func TestUpdateProfile_Errors(t *testing.T) {
	svc, _ := setupTestUserService()

	if _, err := svc.UpdateProfile(context.Background(), &dto.UpdateProfileRequest{}); !errors.Is(err, ErrMissingID) {
		t.Errorf("期望 ErrMissingID，实际: %v", err)
	}
	if _, err := svc.UpdateProfile(context.Background(), &dto.UpdateProfileRequest{ID: 42}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

// ── ChangePassword ──

func TestChangePassword_Success(t *testing.T) {
	svc, repos := setupTestUserService()
	user := createTestUser(t, repos.users, "alice@test.com", "secret1", model.RoleStudent)

	err := svc.ChangePassword(context.Background(), &dto.ChangePasswordRequest{
		UserID: user.ID, OldPassword: "secret1", NewPassword: "secret2",
	})
	if err != nil {
		t.Fatalf("ChangePassword 应成功: %v", err)
	}
	if !checkPassword(repos.users.users[user.ID].Password, "secret2") {
		t.Error("新密码应生效")
	}
}

func TestChangePassword_WrongOldKeepsPassword(t *testing.T) {
	svc, repos := setupTestUserService()
	user := createTestUser(t, repos.users, "alice@test.com", "secret1", model.RoleStudent)

	err := svc.ChangePassword(context.Background(), &dto.ChangePasswordRequest{
		UserID: user.ID, OldPassword: "nope", NewPassword: "secret2",
	})
	if !errors.Is(err, ErrIncorrectOldPassword) {
		t.Fatalf("期望 ErrIncorrectOldPassword，实际: %v", err)
	}
	if !checkPassword(repos.users.users[user.ID].Password, "secret1") {
		t.Error("失败的修改不应改变密码")
	}
}

func TestChangePassword_Validation(t *testing.T) {
	svc, _ := setupTestUserService()

	err := svc.ChangePassword(context.Background(), &dto.ChangePasswordRequest{UserID: 1, OldPassword: "a"})
	if !errors.Is(err, ErrMissingFields) {
		t.Errorf("期望 ErrMissingFields，实际: %v", err)
	}
	err = svc.ChangePassword(context.Background(), &dto.ChangePasswordRequest{UserID: 7, OldPassword: "a", NewPassword: "b"})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

// ── CreateUser ──

func TestCreateUser_DefaultRole(t *testing.T) {
	svc, _ := setupTestUserService()

	created, err := svc.CreateUser(context.Background(), &dto.CreateUserRequest{
		Name: "Bob", Email: "bob@test.com", Password: "pw",
	})
	if err != nil {
		t.Fatalf("CreateUser 应成功: %v", err)
	}
	if created.Role != model.RoleStudent {
		t.Errorf("缺省角色应为 student，实际: %s", created.Role)
	}
	if created.ID == 0 {
		t.Error("应返回新账号 ID")
	}
}

func TestCreateUser_Errors(t *testing.T) {
	svc, repos := setupTestUserService()
	createTestUser(t, repos.users, "bob@test.com", "pw", model.RoleStudent)

	tests := []struct {
		name    string
		req     dto.CreateUserRequest
		wantErr error
	}{
		{"缺少密码", dto.CreateUserRequest{Name: "B", Email: "b@test.com"}, ErrCreateUserMissingFields},
		{"邮箱重复", dto.CreateUserRequest{Name: "B", Email: "bob@test.com", Password: "x"}, ErrEmailExists},
		{"角色非法", dto.CreateUserRequest{Name: "B", Email: "c@test.com", Password: "x", Role: "root"}, ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateUser(context.Background(), &tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际: %v", tt.wantErr, err)
			}
		})
	}
}

// ── AdminResetPassword ──

func TestAdminResetPassword(t *testing.T) {
	svc, repos := setupTestUserService()
	user := createTestUser(t, repos.users, "bob@test.com", "pw", model.RoleStudent)
	ctx := context.Background()

	if err := svc.AdminResetPassword(ctx, &dto.AdminResetPasswordRequest{UserID: user.ID, NewPassword: "reset"}); err != nil {
		t.Fatalf("AdminResetPassword 应成功: %v", err)
	}
	if !checkPassword(repos.users.users[user.ID].Password, "reset") {
		t.Error("密码应被重置")
	}

	if err := svc.AdminResetPassword(ctx, &dto.AdminResetPasswordRequest{UserID: user.ID}); !errors.Is(err, ErrResetMissingFields) {
		t.Errorf("期望 ErrResetMissingFields，实际: %v", err)
	}
	if err := svc.AdminResetPassword(ctx, &dto.AdminResetPasswordRequest{UserID: 404, NewPassword: "x"}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

// ── List ──

func TestListUsers_HidesSecrets(t *testing.T) {
	svc, repos := setupTestUserService()
	createTestUser(t, repos.users, "a@test.com", "pw", model.RoleAdmin)
	createTestUser(t, repos.users, "b@test.com", "pw", model.RoleStudent)

	users, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("期望 2 个账号，实际: %d", len(users))
	}
	if users[0].Email != "a@test.com" || users[1].Email != "b@test.com" {
		t.Errorf("账号应按 ID 升序: %+v", users)
	}
}

// ── 批量导入 ──

func buildImportFile(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellName, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow("Sheet1", cellName, &r); err != nil {
			t.Fatalf("写入测试行失败: %v", err)
		}
	}
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		t.Fatalf("生成测试文件失败: %v", err)
	}
	return buf
}

func TestParseImportFile(t *testing.T) {
	svc, _ := setupTestUserService()
	buf := buildImportFile(t, [][]interface{}{
		{"Email", "Name", "Password", "Role"},
		{"a@test.com", "A", "pw1", "admin"},
		{"", "", "", ""},
		{"b@test.com", "B", "pw2"},
	})

	rows, err := svc.ParseImportFile(buf)
	if err != nil {
		t.Fatalf("ParseImportFile 应成功: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("期望 2 行（跳过空行），实际: %d", len(rows))
	}
	if rows[0].Email != "a@test.com" || rows[0].Role != "admin" {
		t.Errorf("第一行解析错误: %+v", rows[0])
	}
	if rows[1].Row != 4 || rows[1].Role != "" {
		t.Errorf("第二行应来自第 4 行且角色为空: %+v", rows[1])
	}
}

func TestParseImportFile_BadInput(t *testing.T) {
	svc, _ := setupTestUserService()

	if _, err := svc.ParseImportFile(strings.NewReader("not an xlsx")); err == nil {
		t.Error("非 Excel 文件应返回错误")
	}

	headerOnly := buildImportFile(t, [][]interface{}{{"name", "email", "password"}})
	if _, err := svc.ParseImportFile(headerOnly); !errors.Is(err, ErrImportNoData) {
		t.Errorf("期望 ErrImportNoData，实际: %v", err)
	}

	noPassword := buildImportFile(t, [][]interface{}{{"name", "email"}, {"A", "a@test.com"}})
	if _, err := svc.ParseImportFile(noPassword); !errors.Is(err, ErrImportBadHeader) {
		t.Errorf("期望 ErrImportBadHeader，实际: %v", err)
	}
}

func TestImportUsers_MixedRows(t *testing.T) {
	svc, repos := setupTestUserService()
	createTestUser(t, repos.users, "taken@test.com", "pw", model.RoleStudent)

	resp, err := svc.ImportUsers(context.Background(), []ImportUserRow{
		{Row: 2, Name: "A", Email: "a@test.com", Password: "pw"},
		{Row: 3, Name: "B", Email: "taken@test.com", Password: "pw"},
		{Row: 4, Name: "", Email: "c@test.com", Password: "pw"},
		{Row: 5, Name: "D", Email: "A@test.com", Password: "pw"},
		{Row: 6, Name: "E", Email: "e@test.com", Password: "pw", Role: "tutor"},
		{Row: 7, Name: "F", Email: "f@test.com", Password: "pw", Role: "Admin"},
	})
	if err != nil {
		t.Fatalf("ImportUsers 应成功: %v", err)
	}
	if resp.Total != 6 || resp.Success != 2 || resp.Failed != 4 {
		t.Errorf("统计不符: %+v", resp)
	}
	if len(resp.Errors) != 4 || resp.Errors[0].Row != 3 {
		t.Errorf("错误明细不符: %+v", resp.Errors)
	}
	if u := repos.users.byEmail("f@test.com"); u == nil || u.Role != model.RoleAdmin {
		t.Error("Admin 角色应规范化为 admin")
	}
}

func TestImportUsers_RollbackOnWriteFailure(t *testing.T) {
	svc, repos := setupTestUserService()
	repos.users.failBatch = errStorage

	_, err := svc.ImportUsers(context.Background(), []ImportUserRow{
		{Row: 2, Name: "A", Email: "a@test.com", Password: "pw"},
	})
	if !errors.Is(err, errStorage) {
		t.Fatalf("期望写入错误，实际: %v", err)
	}
	if len(repos.users.users) != 0 {
		t.Error("写入失败时不应保留任何账号")
	}
}
