package utils

import (
	"fmt"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
)

// LoginUser 当前登录用户
type LoginUser struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	Username string `json:"name"`
}

// GetUser 从上下文中获取当前用户信息
func GetUser(c *gin.Context) (*LoginUser, error) {
	currentUser, exists := c.Get("user")
	if !exists {
		return nil, fmt.Errorf("GetUser 未授权访问")
	}

	// 处理不同类型的 claims
	var claims map[string]interface{}
	switch v := currentUser.(type) {
	case jwt.MapClaims:
		claims = v
	case map[string]interface{}:
		claims = v
	default:
		return nil, fmt.Errorf("无法识别的用户信息类型: %T", currentUser)
	}

	id, ok := claims["id"].(string)
	if !ok {
		return nil, fmt.Errorf("无效的用户ID")
	}

	role, ok := claims["role"].(string)
	if !ok {
		return nil, fmt.Errorf("无效的用户角色")
	}

	username, ok := claims["username"].(string)
	if !ok {
		return nil, fmt.Errorf("无效的用户名")
	}

	return &LoginUser{
		ID:       id,
		Role:     role,
		Username: username,
	}, nil
}
