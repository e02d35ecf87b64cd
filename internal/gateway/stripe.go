package gateway

import (
	"encoding/json"
	"strconv"

	"github.com/blues/dps/internal/apperr"
	"github.com/blues/dps/internal/config"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"github.com/stripe/stripe-go/v74/webhook"
)

// Adapter 支付网关适配器，负责签名校验和事件解码
type Adapter struct {
	webhookSecret string
	currency      string
	successURL    string
	cancelURL     string
}

// NewAdapter 创建支付网关适配器
func NewAdapter(cfg config.StripeConfig) *Adapter {
	stripe.Key = cfg.SecretKey
	return &Adapter{
		webhookSecret: cfg.WebhookSecret,
		currency:      cfg.Currency,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
}

// CheckoutCompletedEvent 支付完成事件，捐赠记录在此刻才会创建
type CheckoutCompletedEvent struct {
	GatewayEventId  string
	PaymentIntentId string
	EventId         int64
	UserId          *int64 // 游客捐赠为空
	AmountMinor     int64
	Currency        string
	Email           string
	FirstName       string
	LastName        string
	MobileNumber    string
	Anonymous       bool
	SupportMessage  string
}

// PaymentFailedEvent 支付失败事件
type PaymentFailedEvent struct {
	GatewayEventId  string
	PaymentIntentId string
}

// CheckoutInput 创建支付会话的入参
type CheckoutInput struct {
	EventId        int64
	EventTitle     string
	UserId         *int64
	AmountMinor    int64
	Email          string
	FirstName      string
	LastName       string
	MobileNumber   string
	Anonymous      bool
	SupportMessage string
}

// CreateCheckoutSession 创建支付会话，捐赠数据通过metadata随webhook回传
func (a *Adapter) CreateCheckoutSession(in CheckoutInput) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CustomerEmail:      stripe.String(in.Email),
		SuccessURL:         stripe.String(a.successURL),
		CancelURL:          stripe.String(a.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(a.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Donation for " + in.EventTitle),
					},
					UnitAmount: stripe.Int64(in.AmountMinor),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}

	params.AddMetadata("event_id", strconv.FormatInt(in.EventId, 10))
	if in.UserId != nil {
		params.AddMetadata("user_id", strconv.FormatInt(*in.UserId, 10))
	} else {
		params.AddMetadata("user_id", "guest")
	}
	params.AddMetadata("first_name", in.FirstName)
	params.AddMetadata("last_name", in.LastName)
	params.AddMetadata("mobile_number", in.MobileNumber)
	params.AddMetadata("anonymous", strconv.FormatBool(in.Anonymous))
	params.AddMetadata("support_message", in.SupportMessage)

	s, err := session.New(params)
	if err != nil {
		return "", apperr.Wrap(apperr.Upstream, "创建支付会话失败", err)
	}

	return s.URL, nil
}

// ParseWebhook 校验签名并解码网关事件。签名非法时返回 Upstream 错误，
// 调用方应返回非2xx让网关按自身策略重试，不产生任何副作用。
// 不校验事件的API版本：webhook端点的版本由网关侧配置决定，
// 这里只消费签名可信的字段。
func (a *Adapter) ParseWebhook(payload []byte, sigHeader string) (interface{}, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, a.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "webhook签名校验失败", err)
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, apperr.Wrap(apperr.Upstream, "解析checkout.session.completed失败", err)
		}
		return a.decodeCheckoutCompleted(event.ID, &sess)

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, apperr.Wrap(apperr.Upstream, "解析payment_intent.payment_failed失败", err)
		}
		return &PaymentFailedEvent{
			GatewayEventId:  event.ID,
			PaymentIntentId: intent.ID,
		}, nil
	}

	// 未订阅的事件类型，调用方直接确认即可
	return nil, nil
}

// decodeCheckoutCompleted 从会话metadata还原捐赠信息
func (a *Adapter) decodeCheckoutCompleted(gatewayEventId string, sess *stripe.CheckoutSession) (*CheckoutCompletedEvent, error) {
	eventId, err := strconv.ParseInt(sess.Metadata["event_id"], 10, 64)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "metadata缺少有效的event_id", err)
	}

	ev := &CheckoutCompletedEvent{
		GatewayEventId: gatewayEventId,
		EventId:        eventId,
		AmountMinor:    sess.AmountTotal,
		Currency:       string(sess.Currency),
		FirstName:      sess.Metadata["first_name"],
		LastName:       sess.Metadata["last_name"],
		MobileNumber:   sess.Metadata["mobile_number"],
		Anonymous:      sess.Metadata["anonymous"] == "true",
		SupportMessage: sess.Metadata["support_message"],
	}

	if sess.PaymentIntent != nil {
		ev.PaymentIntentId = sess.PaymentIntent.ID
	}
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		ev.Email = sess.CustomerDetails.Email
	} else {
		ev.Email = sess.Metadata["email"]
	}
	if raw := sess.Metadata["user_id"]; raw != "" && raw != "guest" {
		if userId, err := strconv.ParseInt(raw, 10, 64); err == nil {
			ev.UserId = &userId
		}
	}

	return ev, nil
}
