package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/payrollnotify/internal/notification/application"
	"github.com/wyfcoding/payrollnotify/internal/notification/domain"
)

// NotificationHandler 通知管理接口
type NotificationHandler struct {
	app *application.NotificationService
}

// NewNotificationHandler 创建 HTTP 处理器实例
func NewNotificationHandler(app *application.NotificationService) *NotificationHandler {
	return &NotificationHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *NotificationHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api/v1/notifications")
	{
		api.POST("/dispatch", h.DispatchEvent)
		api.POST("/salary-cuts/:cut_id/dispatch", h.DispatchSalaryCut)
		api.POST("/periods/:period_id/dispatch", h.DispatchPeriod)
		api.GET("/periods/:period_id/records", h.ListPeriodRecords)
		api.GET("/periods/:period_id/stats", h.GetStats)
		api.GET("/records/:notification_id", h.GetRecord)
		api.POST("/records/:notification_id/retry", h.Retry)
	}
}

// DispatchEventRequest 任意事件派发请求
type DispatchEventRequest struct {
	Type           string  `json:"type" binding:"required"`
	EmployeeID     string  `json:"employee_id" binding:"required"`
	PeriodID       *string `json:"period_id"`
	RecipientLabel string  `json:"recipient_label"`
	Address        string  `json:"address"`
	Amount         string  `json:"amount"`
	Reason         string  `json:"reason"`
	Period         string  `json:"period"`
}

// DispatchEvent 派发单个事件
func (h *NotificationHandler) DispatchEvent(c *gin.Context) {
	var req DispatchEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	typ := domain.NotificationType(req.Type)
	if !typ.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification type"})
		return
	}
	amount := decimal.Zero
	if req.Amount != "" {
		var err error
		if amount, err = decimal.NewFromString(req.Amount); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
			return
		}
	}

	res, err := h.app.DispatchEvent(c.Request.Context(), domain.Event{
		Type:           typ,
		EmployeeID:     req.EmployeeID,
		PeriodID:       req.PeriodID,
		RecipientLabel: req.RecipientLabel,
		RawAddress:     req.Address,
		Amount:         amount,
		Reason:         req.Reason,
		Period:         req.Period,
	})
	if err != nil {
		h.fail(c, "Failed to dispatch notification", err)
		return
	}
	c.JSON(http.StatusOK, application.ToDispatchResultDTO(res))
}

// DispatchSalaryCut 派发扣薪通知
func (h *NotificationHandler) DispatchSalaryCut(c *gin.Context) {
	res, err := h.app.DispatchSalaryCut(c.Request.Context(), c.Param("cut_id"))
	if err != nil {
		h.fail(c, "Failed to dispatch salary cut notification", err, "cut_id", c.Param("cut_id"))
		return
	}
	c.JSON(http.StatusOK, application.ToDispatchResultDTO(res))
}

// DispatchPeriod 工资期批量派发，客户端断开时停止并返回已处理部分
func (h *NotificationHandler) DispatchPeriod(c *gin.Context) {
	summary, err := h.app.DispatchPeriod(c.Request.Context(), c.Param("period_id"))
	if err != nil {
		h.fail(c, "Failed to dispatch period notifications", err, "period_id", c.Param("period_id"))
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Retry 重试失败通知
func (h *NotificationHandler) Retry(c *gin.Context) {
	res, err := h.app.Retry(c.Request.Context(), c.Param("notification_id"))
	if err != nil {
		h.fail(c, "Failed to retry notification", err, "notification_id", c.Param("notification_id"))
		return
	}
	c.JSON(http.StatusOK, application.ToDispatchResultDTO(res))
}

// GetRecord 获取通知记录
func (h *NotificationHandler) GetRecord(c *gin.Context) {
	record, err := h.app.GetRecord(c.Request.Context(), c.Param("notification_id"))
	if err != nil {
		h.fail(c, "Failed to get notification", err, "notification_id", c.Param("notification_id"))
		return
	}
	c.JSON(http.StatusOK, application.ToNotificationDTO(record))
}

// ListPeriodRecords 分页获取工资期通知记录
func (h *NotificationHandler) ListPeriodRecords(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	records, total, err := h.app.ListPeriodRecords(c.Request.Context(), c.Param("period_id"), limit, offset)
	if err != nil {
		h.fail(c, "Failed to list notifications", err, "period_id", c.Param("period_id"))
		return
	}
	items := make([]*application.NotificationDTO, len(records))
	for i, r := range records {
		items[i] = application.ToNotificationDTO(r)
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

// GetStats 工资期通知统计
func (h *NotificationHandler) GetStats(c *gin.Context) {
	stats, err := h.app.Stats(c.Request.Context(), c.Param("period_id"))
	if err != nil {
		h.fail(c, "Failed to get notification stats", err, "period_id", c.Param("period_id"))
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *NotificationHandler) fail(c *gin.Context, msg string, err error, kv ...any) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Error(c.Request.Context(), msg, append(kv, "error", err)...)
	} else {
		logging.Warn(c.Request.Context(), msg, append(kv, "error", err)...)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound), errors.Is(err, domain.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotRetryable), errors.Is(err, domain.ErrStateConflict), errors.Is(err, domain.ErrCampaignInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
