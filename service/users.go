package service

import (
	"context"

	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/repository"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

// ErrInvalidCredentials 用户名或密码错误
var ErrInvalidCredentials = validationError("登录", "用户名或密码错误")

// Authenticate 本地校验用户名和密码
func Authenticate(ctx context.Context, store repository.Store, username, password string) (*models.User, error) {
	var users []models.User
	err := store.Find(ctx, repository.UsersCollection,
		[]repository.Filter{repository.Eq("username", username)}, &users)
	if err != nil {
		return nil, storeError("查询用户", err)
	}
	if len(users) == 0 || !utils.VerifyPassword(password, users[0].Password) {
		utils.Logger.Warn().Str("username", username).Msg("登录失败")
		return nil, ErrInvalidCredentials
	}
	return &users[0], nil
}
