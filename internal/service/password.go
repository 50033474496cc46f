package service

import (
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost 密码哈希强度，测试中调低以加速
var bcryptCost = bcrypt.DefaultCost

func hashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// checkPassword 比对密码；未设置密码的账号（第三方登录）一律不匹配
func checkPassword(stored *string, plain string) bool {
	if stored == nil || *stored == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*stored), []byte(plain)) == nil
}
