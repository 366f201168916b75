package utils

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger 全局日志对象，InitLogger 之前不输出
var Logger = zerolog.Nop()

// quietResponsePaths 成功时不记录响应体的接口（整张看板或统计结果）
var quietResponsePaths = map[string]bool{
	"/api/sales/board":              true,
	"/api/dashboard/pipeline-stats": true,
	"/api/batches":                  true,
}

// sensitiveHeaders 日志中只保留前缀的请求头
var sensitiveHeaders = []string{"Authorization", "Cookie"}

const maskedPrefixLen = 15

// InitLogger 初始化日志系统
func InitLogger(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()

	Logger.Info().Str("level", level.String()).Msg("日志系统初始化完成")
}

func maskHeader(v string) string {
	if len(v) > maskedPrefixLen {
		return v[:maskedPrefixLen] + "..."
	}
	return v
}

// LogApiRequest 记录API请求
func LogApiRequest(method, path string, params, body interface{}, headers map[string]string) {
	for _, name := range sensitiveHeaders {
		if v, ok := headers[name]; ok {
			headers[name] = maskHeader(v)
		}
	}

	Logger.Info().
		Str("method", method).
		Str("path", path).
		Interface("params", params).
		Interface("body", body).
		Interface("headers", headers).
		Msg("API请求")
}

// LogApiResponse 记录API响应，状态码 >= 400 记为错误
func LogApiResponse(method, path string, statusCode int, elapsed time.Duration, body interface{}) {
	event := Logger.Info()
	if statusCode >= http.StatusBadRequest {
		event = Logger.Error()
	} else if quietResponsePaths[path] {
		body = nil
	}
	event.
		Str("method", method).
		Str("path", path).
		Int("statusCode", statusCode).
		Dur("elapsed", elapsed).
		Interface("body", body).
		Msg("API响应")
}

// LogInfo 记录
func LogInfo(context map[string]interface{}, message string) {
	Logger.Info().
		Interface("context", context).
		Msg(message)
}

// LogError2 记录错误
func LogError2(message string, err error, context map[string]interface{}) {
	Logger.Error().
		Err(err).
		Interface("context", context).
		Msg(message)
}

// LogDbOperation 记录数据库操作，失败时提升为警告
func LogDbOperation(operation, collection string, query interface{}, err error) {
	event := Logger.Debug()
	if err != nil {
		event = Logger.Warn().Err(err)
	}
	event.
		Str("operation", operation).
		Str("collection", collection).
		Interface("query", query).
		Msg("数据库操作")
}

// LogInconsistency 记录成交提交中发现的数据不一致，库存步骤记为错误
func LogInconsistency(key, subject, problem string) {
	event := Logger.Warn()
	if strings.Contains(key, ":stock:") {
		event = Logger.Error()
	}
	event.
		Str("key", key).
		Str("subject", subject).
		Msg("数据不一致: " + problem)
}
