package model

import (
	"time"
)

// DonationModel 捐赠账本记录
type DonationModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 归属信息
	EventId int64  `json:"event_id" gorm:"not null;index:idx_donation_event_status"`
	UserId  *int64 `json:"user_id" gorm:"index:idx_donation_user_status"` // 游客捐赠为空

	// 金额信息：amount_minor 始终为最小货币单位，换算系数固定为100
	AmountMinor int64  `json:"amount_minor" gorm:"not null"`
	Currency    string `json:"currency" gorm:"not null;default:'lkr'"`

	// 支付网关引用，银行回单捐赠为空；存在时全局唯一（同一网关事件不可入账两次）
	PaymentIntentId *string `json:"payment_intent_id" gorm:"uniqueIndex:ux_donation_payment_intent"`

	// 状态
	Status        DonationStatus `json:"status" gorm:"not null;default:'processing';index:idx_donation_event_status;index:idx_donation_user_status"`
	PaymentMethod PaymentMethod  `json:"payment_method" gorm:"not null"`

	// 捐赠人快照信息（与账号无关）
	Email        string `json:"email" gorm:"not null"`
	FirstName    string `json:"first_name" gorm:"not null"`
	LastName     string `json:"last_name" gorm:"not null"`
	MobileNumber string `json:"mobile_number"`
	Anonymous    bool   `json:"anonymous" gorm:"default:false"`

	// 捐赠留言
	SupportMessage string `json:"support_message"`

	// 银行回单相关字段
	BankSlipURL string     `json:"bank_slip_url"`
	VerifiedAt  *time.Time `json:"verified_at"`
	VerifiedBy  *int64     `json:"verified_by"`

	// 成功后异步生成的收据地址
	ReceiptURL string `json:"receipt_url"`
}

// TableName 自定义表名
func (DonationModel) TableName() string {
	return "donation"
}

// AmountMajor 主货币单位金额
func (d *DonationModel) AmountMajor() float64 {
	return float64(d.AmountMinor) / 100
}

// FullName 捐赠人全名
func (d *DonationModel) FullName() string {
	return d.FirstName + " " + d.LastName
}

// DonationStatus 捐赠状态
type DonationStatus string

const (
	DonationStatusProcessing            DonationStatus = "processing"             // 处理中（银行回单待审核）
	DonationStatusSucceeded             DonationStatus = "succeeded"              // 成功，唯一计入筹款总额的状态
	DonationStatusCanceled              DonationStatus = "canceled"               // 已取消（终态）
	DonationStatusRequiresPaymentMethod DonationStatus = "requires_payment_method" // 需要重新支付
)

// donationTransitions 捐赠状态转移表，表外的转移一律拒绝
var donationTransitions = map[DonationStatus][]DonationStatus{
	DonationStatusProcessing: {DonationStatusSucceeded, DonationStatusCanceled},
}

// CanTransitionTo 校验状态转移是否合法
func (s DonationStatus) CanTransitionTo(target DonationStatus) bool {
	for _, allowed := range donationTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsValid 校验状态取值
func (s DonationStatus) IsValid() bool {
	switch s {
	case DonationStatusProcessing, DonationStatusSucceeded,
		DonationStatusCanceled, DonationStatusRequiresPaymentMethod:
		return true
	}
	return false
}

// PaymentMethod 支付方式，由 payment_intent_id 是否存在推导
type PaymentMethod string

const (
	PaymentMethodCard     PaymentMethod = "card"      // 银行卡（网关支付）
	PaymentMethodBankSlip PaymentMethod = "bank_slip" // 银行回单
)
