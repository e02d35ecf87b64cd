package handler

import (
	"net/http"

	"github.com/blues/dps/internal/gateway"
	"github.com/blues/dps/internal/logger"
	"github.com/blues/dps/internal/logic"
	"github.com/blues/dps/internal/receipt"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PaymentHandler 支付处理器，入口是支付会话创建和网关webhook
type PaymentHandler struct {
	adapter       *gateway.Adapter
	eventLogic    *logic.EventLogic
	donationLogic *logic.DonationLogic
}

// NewPaymentHandler 创建支付处理器
func NewPaymentHandler(db *gorm.DB, adapter *gateway.Adapter, receipts receipt.Dispatcher) *PaymentHandler {
	return &PaymentHandler{
		adapter:       adapter,
		eventLogic:    logic.NewEventLogic(db),
		donationLogic: logic.NewDonationLogic(db, receipts),
	}
}

// CreateCheckoutSession 创建支付会话。此时不创建捐赠记录，
// 记录在网关确认成功的webhook里才落库。
func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	event, err := h.eventLogic.GetEvent(req.EventId)
	if err != nil {
		FailResponse(c, err)
		return
	}

	url, err := h.adapter.CreateCheckoutSession(gateway.CheckoutInput{
		EventId:        req.EventId,
		EventTitle:     event.Title,
		UserId:         req.UserId,
		AmountMinor:    req.Amount * 100,
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		MobileNumber:   req.MobileNumber,
		Anonymous:      req.Anonymous,
		SupportMessage: req.SupportMessage,
	})
	if err != nil {
		FailResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "支付会话创建成功", gin.H{"url": url})
}

// HandleWebhook 接收网关事件。签名校验失败或入账失败时返回非2xx，
// 网关会按自身策略重试；重复投递由入账逻辑幂等消化，返回2xx确认。
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "读取请求体失败")
		return
	}

	parsed, err := h.adapter.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		logger.Warn("Webhook verification failed: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "webhook校验失败")
		return
	}

	switch ev := parsed.(type) {
	case *gateway.CheckoutCompletedEvent:
		donation, err := h.donationLogic.ApplyCheckoutCompleted(ev)
		if err != nil {
			logger.Error("Failed to apply gateway event %s: %v", ev.GatewayEventId, err)
			FailResponse(c, err)
			return
		}
		logger.Info("Gateway event %s applied, donation %d", ev.GatewayEventId, donation.Id)

	case *gateway.PaymentFailedEvent:
		if err := h.donationLogic.ApplyPaymentFailed(ev.PaymentIntentId); err != nil {
			logger.Error("Failed to apply payment failure %s: %v", ev.PaymentIntentId, err)
			FailResponse(c, err)
			return
		}

	default:
		// 未订阅的事件类型，直接确认
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
