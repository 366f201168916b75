package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

// InitializeAdminAccount 初始化管理员账户
func InitializeAdminAccount(ctx context.Context, store Store, password string) error {
	// 检查是否已存在管理员
	count, err := store.Count(ctx, UsersCollection, []Filter{Eq("role", models.UserRoleADMIN)})
	if err != nil {
		return fmt.Errorf("检查管理员账户失败: %w", err)
	}

	// 如果已存在，则不创建
	if count > 0 {
		utils.Logger.Info().Msg("管理员账户已存在，跳过创建")
		return nil
	}

	now := time.Now()
	adminUser := models.User{
		ID:           uuid.NewString(),
		Username:     "admin",
		EmployeeCode: "EMP000",
		Password:     utils.HashPassword(password),
		Role:         models.UserRoleADMIN,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := store.Insert(ctx, UsersCollection, adminUser); err != nil {
		return fmt.Errorf("创建管理员账户失败: %w", err)
	}

	utils.Logger.Info().Msg("已创建默认管理员账户")
	return nil
}

// GetDatabaseStatus 获取各集合的文档数
func GetDatabaseStatus(ctx context.Context, store Store) map[string]interface{} {
	result := make(map[string]interface{})

	for _, collName := range Collections {
		count, err := store.Count(ctx, collName, nil)
		if err != nil {
			utils.Logger.Error().Err(err).Str("collection", collName).Msg("获取集合计数失败")
			result[collName] = map[string]interface{}{
				"count": 0,
				"error": err.Error(),
			}
			continue
		}
		result[collName] = map[string]interface{}{
			"count": count,
		}
	}

	return result
}
