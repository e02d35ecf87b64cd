package router

import (
	"github.com/blues/dps/internal/config"
	"github.com/blues/dps/internal/gateway"
	"github.com/blues/dps/internal/handler"
	"github.com/blues/dps/internal/middleware"
	"github.com/blues/dps/internal/model"
	"github.com/blues/dps/internal/receipt"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, adapter *gateway.Adapter, receipts receipt.Dispatcher, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "donation-platform-service",
		})
	})

	adminOnly := []gin.HandlerFunc{
		middleware.Auth(cfg.Auth.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
	}

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 支付相关路由
		paymentHandler := handler.NewPaymentHandler(db, adapter, receipts)
		payments := v1.Group("/payments")
		{
			payments.POST("/checkout-session", paymentHandler.CreateCheckoutSession)
			payments.POST("/webhook", paymentHandler.HandleWebhook)
		}

		// 捐赠相关路由
		bankSlipHandler := handler.NewBankSlipHandler(db, receipts)
		donations := v1.Group("/donations")
		{
			donations.POST("/bank-slip", bankSlipHandler.SubmitBankSlip)
			donations.GET("/bank-slip", append(adminOnly, bankSlipHandler.ListBankSlipDonations)...)
			donations.PUT("/bank-slip/:id/approve", append(adminOnly, bankSlipHandler.ApproveBankSlip)...)
			donations.PUT("/:id/status", append(adminOnly, bankSlipHandler.UpdateDonationStatus)...)
		}

		// 捐赠查询路由
		recordHandler := handler.NewDonationRecordHandler(db)
		users := v1.Group("/users")
		{
			users.GET("/:id/donations/summary", recordHandler.GetUserDonationSummary)
			users.GET("/:id/donations/history", recordHandler.GetUserDonationHistory)
		}
		organizers := v1.Group("/organizers")
		{
			organizers.GET("/:id/donation-progress", recordHandler.GetOrganizerDonationProgress)
		}

		// 活动相关路由
		eventHandler := handler.NewEventHandler(db)
		events := v1.Group("/events")
		{
			events.POST("", eventHandler.CreateEvent)
			events.GET("", eventHandler.GetEvents)
			events.GET("/:id", eventHandler.GetEvent)
			events.POST("/:id/reconcile", append(adminOnly, eventHandler.ReconcileEvent)...)
		}
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
