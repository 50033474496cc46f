package model

import "time"

// Enrollment 课程报名表 — 对应 enrollments
type Enrollment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"             json:"id"`
	Name      string    `gorm:"type:varchar(255);not null"           json:"name"`
	Email     string    `gorm:"type:varchar(255);not null"           json:"email"`
	Phone     string    `gorm:"type:varchar(50);not null"            json:"phone"`
	Course    string    `gorm:"type:varchar(255);not null"           json:"course"`
	Message   string    `gorm:"type:text;not null;default:''"        json:"message"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"   json:"created_at"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }
