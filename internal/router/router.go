package router

import (
	"github.com/Kubistream/kubi-main-app-sub000/internal/handler"
	"github.com/Kubistream/kubi-main-app-sub000/internal/watcher"
	"github.com/Kubistream/kubi-main-app-sub000/internal/ws"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, hub *ws.Hub, watchers []*watcher.Watcher) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "kubi-main-app",
		})
	})

	// 捐赠提醒推送通道
	r.GET("/subscribe/:recipientId", func(c *gin.Context) {
		ws.Serve(hub, c)
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		statusHandler := handler.NewStatusHandler(watchers, hub)
		v1.GET("/status", statusHandler.GetStatus)

		donationHandler := handler.NewDonationHandler(db)
		v1.GET("/recipients/:id/donations", donationHandler.GetRecipientDonations)

		notificationHandler := handler.NewNotificationHandler(db)
		v1.POST("/notifications/:id/retry", notificationHandler.RetryNotification)
		v1.GET("/notifications/stats", notificationHandler.GetQueueStats)
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
