package handler

import (
	"time"

	"github.com/blues/dps/internal/model"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 支付相关请求模型

// CheckoutRequest 创建支付会话请求
type CheckoutRequest struct {
	EventId        int64  `json:"event_id" binding:"required"`
	UserId         *int64 `json:"user_id"`
	Amount         int64  `json:"amount" binding:"required,min=1"` // 主货币单位
	Email          string `json:"email" binding:"required,email"`
	FirstName      string `json:"first_name" binding:"required"`
	LastName       string `json:"last_name" binding:"required"`
	MobileNumber   string `json:"mobile_number"`
	Anonymous      bool   `json:"anonymous"`
	SupportMessage string `json:"support_message"`
}

// BankSlipRequest 银行回单捐赠请求，回单已由上传服务先行上传
type BankSlipRequest struct {
	EventId        int64  `json:"event_id" binding:"required"`
	UserId         *int64 `json:"user_id"`
	Amount         int64  `json:"amount" binding:"required,min=1"` // 主货币单位
	Email          string `json:"email" binding:"required,email"`
	FirstName      string `json:"first_name" binding:"required"`
	LastName       string `json:"last_name" binding:"required"`
	MobileNumber   string `json:"mobile_number"`
	Anonymous      bool   `json:"anonymous"`
	SupportMessage string `json:"support_message"`
	BankSlipURL    string `json:"bank_slip_url" binding:"required"`
}

// UpdateDonationStatusRequest 更新捐赠状态请求
type UpdateDonationStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// 活动相关请求模型

// CreateEventRequest 创建活动请求
type CreateEventRequest struct {
	Title            string    `json:"title" binding:"required"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	GreetingSentence string    `json:"greeting_sentence"`
	ImageURL         string    `json:"image_url"`
	Type             string    `json:"type" binding:"required"`
	FundingGoal      float64   `json:"funding_goal"`
	EventDate        time.Time `json:"event_date"`
	Location         string    `json:"location"`
	OrganizerId      int64     `json:"organizer_id" binding:"required"`
}

// 响应模型

// DonationResponse 捐赠响应模型
type DonationResponse struct {
	Id             int64      `json:"id"`
	EventId        int64      `json:"eventId"`
	UserId         *int64     `json:"userId,omitempty"`
	AmountMinor    int64      `json:"amountMinor"`
	Amount         float64    `json:"amount"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	PaymentMethod  string     `json:"paymentMethod"`
	Email          string     `json:"email"`
	DonorName      string     `json:"donorName"`
	Anonymous      bool       `json:"anonymous"`
	SupportMessage string     `json:"supportMessage"`
	BankSlipURL    string     `json:"bankSlipUrl,omitempty"`
	ReceiptURL     string     `json:"receiptUrl,omitempty"`
	VerifiedAt     *time.Time `json:"verifiedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// EventResponse 活动响应模型
type EventResponse struct {
	Id               int64     `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	GreetingSentence string    `json:"greetingSentence"`
	ImageURL         string    `json:"imageUrl"`
	Type             string    `json:"type"`
	FundingGoal      float64   `json:"fundingGoal"`
	RaisedAmount     float64   `json:"raisedAmount"`
	ProgrammeStatus  string    `json:"programmeStatus"`
	EventDate        time.Time `json:"eventDate"`
	Location         string    `json:"location"`
	OrganizerId      int64     `json:"organizerId"`
	CreatedAt        time.Time `json:"createdAt"`
}

// 转换函数

// ToDonationResponse 将捐赠数据库模型转换为响应模型
func ToDonationResponse(donation *model.DonationModel) DonationResponse {
	donorName := donation.FullName()
	if donation.Anonymous {
		donorName = "Anonymous"
	}

	return DonationResponse{
		Id:             donation.Id,
		EventId:        donation.EventId,
		UserId:         donation.UserId,
		AmountMinor:    donation.AmountMinor,
		Amount:         donation.AmountMajor(),
		Currency:       donation.Currency,
		Status:         string(donation.Status),
		PaymentMethod:  string(donation.PaymentMethod),
		Email:          donation.Email,
		DonorName:      donorName,
		Anonymous:      donation.Anonymous,
		SupportMessage: donation.SupportMessage,
		BankSlipURL:    donation.BankSlipURL,
		ReceiptURL:     donation.ReceiptURL,
		VerifiedAt:     donation.VerifiedAt,
		CreatedAt:      donation.CreatedAt,
	}
}

// ToDonationResponseList 将捐赠数据库模型列表转换为响应模型列表
func ToDonationResponseList(donations []model.DonationModel) []DonationResponse {
	result := make([]DonationResponse, len(donations))
	for i, donation := range donations {
		result[i] = ToDonationResponse(&donation)
	}
	return result
}

// ToEventResponse 将活动数据库模型转换为响应模型
func ToEventResponse(event *model.EventModel) EventResponse {
	return EventResponse{
		Id:               event.Id,
		Title:            event.Title,
		Description:      event.Description,
		Category:         event.Category,
		GreetingSentence: event.GreetingSentence,
		ImageURL:         event.ImageURL,
		Type:             string(event.Type),
		FundingGoal:      event.FundingGoal,
		RaisedAmount:     event.RaisedAmount,
		ProgrammeStatus:  string(event.ProgrammeStatus),
		EventDate:        event.EventDate,
		Location:         event.Location,
		OrganizerId:      event.OrganizerId,
		CreatedAt:        event.CreatedAt,
	}
}

// ToEventResponseList 将活动数据库模型列表转换为响应模型列表
func ToEventResponseList(events []model.EventModel) []EventResponse {
	result := make([]EventResponse, len(events))
	for i, event := range events {
		result[i] = ToEventResponse(&event)
	}
	return result
}
