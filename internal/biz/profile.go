package biz

import (
	"context"
	"regexp"
	"strings"
	"time"

	"factfit/internal/pkg/tracing"
)

// minPasswordLength 自助修改密码的最短长度
const minPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,30}$`)

// ProfileUpdate 客户自助修改资料，空字段表示不修改
type ProfileUpdate struct {
	Username string
	Email    string
}

// PasswordChange 客户自助修改密码
type PasswordChange struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// EditProfile 客户修改自己的用户名或邮箱
//
// 用户名去掉首尾空白，邮箱统一小写；与他人重复时返回 ErrCustomerExists。
func (uc *CustomerUsecase) EditProfile(ctx context.Context, id int64, req *ProfileUpdate) (*Customer, error) {
	ctx, span := tracing.StartSpan(ctx, "CustomerUsecase.EditProfile")
	defer span.End()

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" && email == "" {
		return nil, ErrNothingToUpdate
	}
	if username != "" && !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}

	update := &CustomerUpdate{}
	if username != "" {
		update.Username = &username
	}
	if email != "" {
		update.Email = &email
	}

	uc.log.WithContext(ctx).Infof("Customer %d editing profile", id)
	return uc.Update(ctx, id, update)
}

// ChangePassword 校验旧密码后设置新密码
func (uc *CustomerUsecase) ChangePassword(ctx context.Context, id int64, req *PasswordChange) error {
	ctx, span := tracing.StartSpan(ctx, "CustomerUsecase.ChangePassword")
	defer span.End()

	if req.NewPassword == "" && req.ConfirmPassword == "" {
		return ErrWeakPassword
	}
	if req.OldPassword == "" {
		return ErrOldPasswordRequired
	}

	return uc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := lockCustomer(ctx, uc.customers, id); err != nil {
			return err
		}
		customer, err := uc.customers.GetByID(ctx, id)
		if err != nil {
			return storageError("get customer", err)
		}
		if !checkPasswordHash(req.OldPassword, customer.PasswordHash) {
			uc.log.WithContext(ctx).Warnf("Wrong old password for customer id: %d", id)
			return ErrOldPasswordIncorrect
		}
		if req.NewPassword != req.ConfirmPassword {
			return ErrPasswordMismatch
		}
		if len(req.NewPassword) < minPasswordLength {
			return ErrWeakPassword
		}

		hashed, err := hashPassword(req.NewPassword)
		if err != nil {
			return err
		}
		if err := uc.customers.Update(ctx, id, map[string]interface{}{
			"password_hash": hashed,
			"updated_at":    time.Now(),
		}); err != nil {
			return storageError("update password", err)
		}
		return appendHistory(ctx, uc.history, id, ActionPasswordChanged, "Password changed by customer")
	})
}
