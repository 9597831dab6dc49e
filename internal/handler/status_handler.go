package handler

import (
	"net/http"

	"github.com/Kubistream/kubi-main-app-sub000/internal/watcher"
	"github.com/Kubistream/kubi-main-app-sub000/internal/ws"
	"github.com/gin-gonic/gin"
)

// StatusHandler 运行状态处理器
type StatusHandler struct {
	watchers []*watcher.Watcher
	hub      *ws.Hub
}

// NewStatusHandler 创建运行状态处理器
func NewStatusHandler(watchers []*watcher.Watcher, hub *ws.Hub) *StatusHandler {
	return &StatusHandler{
		watchers: watchers,
		hub:      hub,
	}
}

// GetStatus 返回各链watcher游标与在线连接数
func (h *StatusHandler) GetStatus(c *gin.Context) {
	watcherStatus := make([]map[string]interface{}, 0, len(h.watchers))
	for _, w := range h.watchers {
		watcherStatus = append(watcherStatus, w.Status())
	}

	c.JSON(http.StatusOK, gin.H{
		"watchers":    watcherStatus,
		"subscribers": h.hub.ConnectionCount(),
	})
}
