package handler

import (
	"net/http"
	"strconv"

	"github.com/Kubistream/kubi-main-app-sub000/internal/logic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NotificationHandler 通知队列管理处理器
type NotificationHandler struct {
	notifyLogic *logic.NotificationLogic
}

// NewNotificationHandler 创建通知队列管理处理器
func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{
		notifyLogic: logic.NewNotificationLogic(db),
	}
}

// RetryNotification 将投递失败的通知重置为待投递
func (h *NotificationHandler) RetryNotification(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.notifyLogic.Retry(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notification requeued"})
}

// GetQueueStats 按状态统计通知队列
func (h *NotificationHandler) GetQueueStats(c *gin.Context) {
	counts, err := h.notifyLogic.CountByStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": counts})
}
