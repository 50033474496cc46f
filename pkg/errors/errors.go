package errors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// uniqueViolation PostgreSQL 唯一约束冲突错误码
const uniqueViolation = "23505"

// ErrDuplicateKey 唯一键冲突：记录已存在
var ErrDuplicateKey = errors.New("记录已存在")

// IsUniqueViolation 判断数据库错误是否为唯一约束冲突
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// TranslateDuplicate 将唯一约束冲突统一转换为 ErrDuplicateKey，其余错误原样返回
func TranslateDuplicate(err error) error {
	if IsUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}
