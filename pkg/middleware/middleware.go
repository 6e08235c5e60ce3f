// Package middleware 提供 Gin 通用中间件（请求 ID、访问日志、指标、panic recover、限流）
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wyfcoding/pkg/logging"
)

// RequestIDKey gin context 中请求 ID 的 key
const RequestIDKey = "request_id"

// RequestIDHeader 请求 ID 头
const RequestIDHeader = "X-Request-ID"

// HTTPRecorder HTTP 指标记录
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, statusCode int, duration time.Duration)
}

// RequestID 透传或生成请求 ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// GinLoggingMiddleware Gin 访问日志，recorder 可为空
func GinLoggingMiddleware(recorder HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if recorder != nil {
			recorder.RecordHTTPRequest(c.Request.Method, route, status, duration)
		}

		requestID, _ := c.Get(RequestIDKey)
		args := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", status,
			"client_ip", c.ClientIP(),
			"duration", duration,
		}
		if status >= http.StatusInternalServerError {
			logging.Error(c.Request.Context(), "HTTP request completed", args...)
			return
		}
		logging.Info(c.Request.Context(), "HTTP request completed", args...)
	}
}

// GinRecoveryMiddleware Gin panic 恢复中间件
func GinRecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID, _ := c.Get(RequestIDKey)
				logging.Error(c.Request.Context(), "HTTP request panicked",
					"request_id", requestID,
					"panic", err,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":      "internal server error",
					"request_id": requestID,
				})
			}
		}()
		c.Next()
	}
}
