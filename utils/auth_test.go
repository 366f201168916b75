package utils

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/sales_pipeline/models"
)

func TestVerifyPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		stored   string
		want     bool
	}{
		{"plain sha256", "admin123", HashPassword("admin123"), true},
		{"plain sha256 mismatch", "admin124", HashPassword("admin123"), false},
		{"salted", "secret", SimpleHash("secret", "abc"), true},
		{"default salt", "secret", SimpleHash("secret", ""), true},
		{"salted mismatch", "other", SimpleHash("secret", "abc"), false},
		{"unknown format", "secret", "md5$x$y", false},
		{"empty", "secret", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyPassword(tt.password, tt.stored))
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	SetJWTSecret("test-secret")
	defer SetJWTSecret("your-secret-key")

	token, err := GenerateToken(models.User{ID: "u1", Username: "alice", Role: models.UserRoleSALES})
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims["id"])
	assert.Equal(t, "alice", claims["username"])
	assert.Equal(t, "SALES", claims["role"])

	SetJWTSecret("rotated")
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	SetJWTSecret("test-secret")
	defer SetJWTSecret("your-secret-key")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = ParseToken(signed)
	assert.Error(t, err)
}
