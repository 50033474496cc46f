package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ay-digital/backend/internal/dto"
	"ay-digital/backend/internal/model"
	"ay-digital/backend/internal/repository"
	pkgerrors "ay-digital/backend/pkg/errors"
)

// ── 用户模块业务错误 ──

var (
	ErrMissingID               = errors.New("User ID is required")
	ErrCreateUserMissingFields = errors.New("Name, email, and password are required")
	ErrResetMissingFields      = errors.New("User ID and new password are required")
	ErrIncorrectOldPassword    = errors.New("Incorrect old password")
	ErrInvalidRole             = errors.New("Role must be admin or student")
)

// UserService 用户业务接口
type UserService interface {
	UpdateProfile(ctx context.Context, req *dto.UpdateProfileRequest) (*dto.UserProfile, error)
	ChangePassword(ctx context.Context, req *dto.ChangePasswordRequest) error
	CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*dto.CreatedUser, error)
	AdminResetPassword(ctx context.Context, req *dto.AdminResetPasswordRequest) error
	List(ctx context.Context) ([]dto.UserProfile, error)
	ParseImportFile(reader io.Reader) ([]ImportUserRow, error)
	ImportUsers(ctx context.Context, rows []ImportUserRow) (*dto.ImportUserResponse, error)
}

// ImportUserRow Excel 导入解析后的单行数据
type ImportUserRow struct {
	Row      int
	Name     string
	Email    string
	Password string
	Role     string
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── UpdateProfile ──────────────────────

// UpdateProfile 覆盖写入地址与电话，未提供的字段置空
func (s *userService) UpdateProfile(ctx context.Context, req *dto.UpdateProfileRequest) (*dto.UserProfile, error) {
	if req.ID == 0 {
		return nil, ErrMissingID
	}

	user, err := s.repo.User.UpdateContact(ctx, req.ID, req.Address, req.Phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("更新联系方式失败", zap.Int64("user_id", req.ID), zap.Error(err))
		return nil, err
	}

	profile := dto.NewUserProfile(user)
	return &profile, nil
}

// ────────────────────── ChangePassword ──────────────────────

func (s *userService) ChangePassword(ctx context.Context, req *dto.ChangePasswordRequest) error {
	if req.UserID == 0 || req.OldPassword == "" || req.NewPassword == "" {
		return ErrMissingFields
	}

	user, err := s.repo.User.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Int64("user_id", req.UserID), zap.Error(err))
		return err
	}

	if !checkPassword(user.Password, req.OldPassword) {
		return ErrIncorrectOldPassword
	}

	return s.setPassword(ctx, user.ID, req.NewPassword)
}

// ────────────────────── CreateUser ──────────────────────

func (s *userService) CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*dto.CreatedUser, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, ErrCreateUserMissingFields
	}

	role, err := normalizeRole(req.Role)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.User.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	name := req.Name
	user := &model.User{
		Name:     &name,
		Email:    req.Email,
		Password: &hash,
		Role:     role,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, pkgerrors.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("管理员创建账号", zap.Int64("user_id", user.ID), zap.String("role", role))
	return &dto.CreatedUser{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}, nil
}

// ────────────────────── AdminResetPassword ──────────────────────

// AdminResetPassword 管理员直接设置密码，不校验旧密码
func (s *userService) AdminResetPassword(ctx context.Context, req *dto.AdminResetPasswordRequest) error {
	if req.UserID == 0 || req.NewPassword == "" {
		return ErrResetMissingFields
	}
	return s.setPassword(ctx, req.UserID, req.NewPassword)
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context) ([]dto.UserProfile, error) {
	users, err := s.repo.User.ListAll(ctx)
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.UserProfile, 0, len(users))
	for i := range users {
		result = append(result, dto.NewUserProfile(&users[i]))
	}
	return result, nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 1000

var (
	ErrImportNoData      = errors.New("Spreadsheet has no data rows (first row is the header)")
	ErrImportTooManyRows = fmt.Errorf("Spreadsheet exceeds the limit of %d rows", maxImportRows)
	ErrImportBadHeader   = errors.New("Spreadsheet header must contain name, email and password columns")
)

// ParseImportFile 解析导入 Excel 文件，role 列可选
func (s *userService) ParseImportFile(reader io.Reader) ([]ImportUserRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析 Excel 文件: %w", err)
	}
	defer f.Close()

	excelRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	colIndex := parseHeaderIndex(excelRows[0])
	if colIndex["name"] < 0 || colIndex["email"] < 0 || colIndex["password"] < 0 {
		return nil, ErrImportBadHeader
	}

	cellAt := func(row []string, col string) string {
		idx := colIndex[col]
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var rows []ImportUserRow
	for i := 1; i < len(excelRows); i++ {
		item := ImportUserRow{
			Row:      i + 1,
			Name:     cellAt(excelRows[i], "name"),
			Email:    cellAt(excelRows[i], "email"),
			Password: cellAt(excelRows[i], "password"),
			Role:     cellAt(excelRows[i], "role"),
		}
		if item.Name == "" && item.Email == "" && item.Password == "" && item.Role == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

// parseHeaderIndex 解析表头，返回列名 -> 列索引映射
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{"name": -1, "email": -1, "password": -1, "role": -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name", "姓名":
			idx["name"] = i
		case "email", "邮箱":
			idx["email"] = i
		case "password", "密码":
			idx["password"] = i
		case "role", "角色":
			idx["role"] = i
		}
	}
	return idx
}

// ────────────────────── ImportUsers ──────────────────────

// ImportUsers 逐行校验后在单个事务中批量写入
// 校验失败的行计入 Errors，写入失败时全部回滚
func (s *userService) ImportUsers(ctx context.Context, rows []ImportUserRow) (*dto.ImportUserResponse, error) {
	resp := &dto.ImportUserResponse{Total: len(rows)}
	fail := func(row int, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportUserError{Row: row, Reason: reason})
	}

	seen := make(map[string]int, len(rows))
	users := make([]model.User, 0, len(rows))

	for _, row := range rows {
		if row.Name == "" || row.Email == "" || row.Password == "" {
			fail(row.Row, "name, email and password are required")
			continue
		}

		role, err := normalizeRole(row.Role)
		if err != nil {
			fail(row.Row, fmt.Sprintf("invalid role: %s", row.Role))
			continue
		}

		key := strings.ToLower(row.Email)
		if first, ok := seen[key]; ok {
			fail(row.Row, fmt.Sprintf("duplicate of row %d: %s", first, row.Email))
			continue
		}

		if _, err := s.repo.User.GetByEmail(ctx, row.Email); err == nil {
			fail(row.Row, fmt.Sprintf("email already registered: %s", row.Email))
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询用户失败", zap.Int("row", row.Row), zap.Error(err))
			return nil, err
		}

		hash, err := hashPassword(row.Password)
		if err != nil {
			fail(row.Row, "failed to hash password")
			continue
		}

		seen[key] = row.Row
		name := row.Name
		users = append(users, model.User{
			Name:     &name,
			Email:    row.Email,
			Password: &hash,
			Role:     role,
		})
	}

	if err := s.repo.User.CreateBatch(ctx, users); err != nil {
		s.logger.Error("导入用户写入失败，事务回滚", zap.Int("rows", len(users)), zap.Error(err))
		return nil, fmt.Errorf("写入数据库失败，已回滚全部导入: %w", err)
	}
	resp.Success = len(users)

	s.logger.Info("批量导入账号完成",
		zap.Int("total", resp.Total),
		zap.Int("success", resp.Success),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

// ── 内部辅助方法 ──

func (s *userService) setPassword(ctx context.Context, userID int64, plain string) error {
	hash, err := hashPassword(plain)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}

	if err := s.repo.User.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("更新密码失败", zap.Int64("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// normalizeRole 空角色视为 student
func normalizeRole(role string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "", model.RoleStudent:
		return model.RoleStudent, nil
	case model.RoleAdmin:
		return model.RoleAdmin, nil
	default:
		return "", ErrInvalidRole
	}
}
