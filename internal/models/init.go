package models

import (
	"errors"
	"strings"

	"github.com/tastemap/internal/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const defaultAdminPassword = "admin123"

// EnsureAdminUser 确保默认管理员账号存在，返回该用户
func EnsureAdminUser(email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = "admin@tastemap.local"
	}

	var existing User
	err := DB.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if password == "" {
		password = defaultAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  "admin",
		Status:       "active",
	}
	if err := DB.Create(&user).Error; err != nil {
		return nil, err
	}

	if password == defaultAdminPassword {
		logger.Warnw("default_admin_created_with_default_password", "email", email)
	} else {
		logger.Infow("default_admin_created", "email", email)
	}
	return &user, nil
}
