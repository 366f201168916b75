package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/BerniceZTT/sales_pipeline/models"
)

var jwtSecret = []byte("your-secret-key")

// tokenTTL 令牌有效期
const tokenTTL = 24 * time.Hour

// SetJWTSecret 设置签名密钥
func SetJWTSecret(secret string) {
	jwtSecret = []byte(secret)
}

// HashPassword 哈希密码
func HashPassword(password string) string {
	hash := sha256.Sum256([]byte(password))
	return hex.EncodeToString(hash[:])
}

// SimpleHash 简单哈希 (sha256 + 盐值)
func SimpleHash(password string, salt string) string {
	if salt == "" {
		salt = "69dc6ee0"
	}
	hash := sha256.Sum256([]byte(password + salt))
	return fmt.Sprintf("sha256$%s$%s", salt, hex.EncodeToString(hash[:]))
}

// VerifyPassword 验证密码，支持纯 sha256 和 sha256$salt$hash 两种格式
func VerifyPassword(password string, hashedPassword string) bool {
	if HashPassword(password) == hashedPassword {
		return true
	}

	parts := strings.Split(hashedPassword, "$")
	if len(parts) == 3 && parts[0] == "sha256" {
		return SimpleHash(password, parts[1]) == hashedPassword
	}

	return false
}

// GenerateToken 生成JWT令牌
func GenerateToken(user models.User) (string, error) {
	claims := jwt.MapClaims{
		"id":       user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"exp":      time.Now().Add(tokenTTL).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", fmt.Errorf("生成令牌失败: %w", err)
	}

	Logger.Info().
		Str("id", user.ID).
		Str("username", user.Username).
		Str("role", string(user.Role)).
		Msg("生成令牌")

	return signed, nil
}

// ParseToken 解析JWT令牌
func ParseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("意外的签名方法: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("无效的令牌")
	}

	return claims, nil
}
