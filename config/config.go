package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"

	"github.com/BerniceZTT/sales_pipeline/utils"
)

const appName = "sales_pipeline"

// Config 应用配置
type Config struct {
	Port          int
	StoreDriver   string
	MongoURI      string
	MongoDB       string
	SQLitePath    string
	JWTKey        string
	AdminPassword string
	Debug         bool
	CORSOrigins   []string
}

// LoadConfig 从环境变量加载配置，存在 .env 文件时先加载
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		utils.Logger.Warn().Err(err).Msg("加载 .env 文件失败")
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil || port <= 0 {
		port = 8080
	}

	return &Config{
		Port:          port,
		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", "mongo")),
		MongoURI:      getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:       getEnv("MONGO_DB", "sales"),
		SQLitePath:    getEnv("SQLITE_PATH", defaultSQLitePath()),
		JWTKey:        getEnv("JWT_KEY", "your-secret-key"), // 实际环境应替换为安全密钥
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
		Debug:         getEnv("GIN_MODE", "debug") == "debug",
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "*")),
	}
}

// defaultSQLitePath 默认放在 XDG 数据目录下
func defaultSQLitePath() string {
	path, err := xdg.DataFile(filepath.Join(appName, "sales.db"))
	if err != nil {
		return filepath.Join(".", "sales.db")
	}
	return path
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
