package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/repository"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

// 需要记录的HTTP方法
var loggedMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
	http.MethodPatch:  true,
}

// 不需要记录的路径
var excludedPaths = map[string]bool{
	"/api/health":     true,
	"/api/db-status":  true,
	"/api/auth/login": true,
}

// OperationLoggerMiddleware 记录写操作到 apiOperationLogs 集合
func OperationLoggerMiddleware(store repository.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !shouldLogOperation(c) {
			c.Next()
			return
		}

		startTime := time.Now()

		blw := &bodyLogWriter{
			body:           bytes.NewBufferString(""),
			ResponseWriter: c.Writer,
		}
		c.Writer = blw

		// 读取并重置请求体
		var requestBody interface{}
		if c.Request.Body != nil {
			raw, err := io.ReadAll(c.Request.Body)
			if err != nil {
				utils.Logger.Error().Err(err).Msg("读取请求体失败")
			} else {
				c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
				requestBody = decodeBody(raw, c.Request.Header.Get("Content-Type"))
			}
		}

		c.Next()

		// 用户信息由认证中间件在 c.Next 中写入
		operatorID, operatorName, operatorType := extractUserInfo(c)

		var errorMessage string
		if len(c.Errors) > 0 {
			errorMessage = c.Errors.String()
		}

		operationLog := models.OperationLog{
			LogID:         uuid.NewString(),
			Method:        c.Request.Method,
			Path:          c.Request.URL.Path,
			OperatorID:    operatorID,
			OperatorName:  operatorName,
			OperatorType:  operatorType,
			RequestBody:   sanitizeData(requestBody),
			RequestHeader: sanitizeHeaders(c.Request.Header),
			ResponseData:  sanitizeData(decodeBody(blw.body.Bytes(), c.Writer.Header().Get("Content-Type"))),
			StatusCode:    c.Writer.Status(),
			Success:       c.Writer.Status() < http.StatusBadRequest,
			ErrorMessage:  errorMessage,
			OperationTime: startTime,
			ResponseTime:  time.Since(startTime).Milliseconds(),
			IPAddress:     getClientIP(c),
			UserAgent:     c.Request.UserAgent(),
		}

		// 请求结束后上下文可能已取消，使用独立的超时
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := store.Insert(ctx, repository.ApiOperationLogsCollection, operationLog); err != nil {
			utils.Logger.Error().Err(err).Msg("保存操作日志失败")
			// 尝试保存最小日志
			minimalLog := operationLog
			minimalLog.RequestBody = nil
			minimalLog.RequestHeader = nil
			minimalLog.ResponseData = nil
			minimalLog.ErrorMessage = fmt.Sprintf("保存详细日志失败: %v", err)

			if saveErr := store.Insert(ctx, repository.ApiOperationLogsCollection, minimalLog); saveErr != nil {
				utils.Logger.Error().Err(saveErr).Msg("保存最小日志失败")
			}
		}
	}
}

// shouldLogOperation 检查是否需要记录此操作
func shouldLogOperation(c *gin.Context) bool {
	if excludedPaths[c.Request.URL.Path] {
		return false
	}
	return loggedMethods[c.Request.Method]
}

func decodeBody(raw []byte, contentType string) interface{} {
	if len(raw) == 0 {
		return nil
	}
	if strings.Contains(contentType, "application/json") {
		var v interface{}
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
		utils.Logger.Warn().Msg("解析JSON内容失败")
	}
	return string(raw)
}

// extractUserInfo 从上下文中提取用户信息
func extractUserInfo(c *gin.Context) (string, string, string) {
	user, err := utils.GetUser(c)
	if err != nil {
		return "anonymous", "匿名用户", "UNKNOWN"
	}
	return user.ID, user.Username, user.Role
}

// sanitizeData 清理数据中的敏感信息
func sanitizeData(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		sanitized := make(map[string]interface{}, len(v))
		for k, val := range v {
			switch strings.ToLower(k) {
			case "password", "token", "authorization", "secret", "key":
				sanitized[k] = "******"
			default:
				sanitized[k] = sanitizeData(val)
			}
		}
		return sanitized
	case []interface{}:
		sanitized := make([]interface{}, len(v))
		for i, val := range v {
			sanitized[i] = sanitizeData(val)
		}
		return sanitized
	default:
		return data
	}
}

// sanitizeHeaders 清理请求头中的敏感信息
func sanitizeHeaders(headers http.Header) map[string]interface{} {
	sanitized := make(map[string]interface{})
	for k, v := range headers {
		switch strings.ToLower(k) {
		case "authorization":
			if len(v) > 0 {
				sanitized[k] = getShortAuthHeader(v[0])
			}
		case "cookie", "x-api-key":
			sanitized[k] = "******"
		default:
			sanitized[k] = v
		}
	}
	return sanitized
}

// getClientIP 获取客户端IP地址
func getClientIP(c *gin.Context) string {
	if ip := c.Request.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := c.Request.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return c.ClientIP()
}
