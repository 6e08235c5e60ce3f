package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check 依赖就绪检查
type Check func(ctx context.Context) error

// SystemHandler 健康检查与指标
type SystemHandler struct {
	checks  map[string]Check
	metrics http.Handler
}

// NewSystemHandler metrics 为空时不暴露指标
func NewSystemHandler(checks map[string]Check, metrics http.Handler) *SystemHandler {
	return &SystemHandler{checks: checks, metrics: metrics}
}

// RegisterRoutes 注册路由
func (h *SystemHandler) RegisterRoutes(router gin.IRouter, metricsPath string) {
	router.GET("/sys/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
	router.GET("/sys/ready", h.Ready)
	if h.metrics != nil {
		router.GET(metricsPath, gin.WrapH(h.metrics))
	}
}

// Ready 所有依赖检查通过才返回 200
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "UP"
	}
	c.JSON(status, gin.H{"checks": results})
}
