package handler

import (
	"net/http"
	"strconv"

	"github.com/blues/dps/internal/logic"
	"github.com/blues/dps/internal/middleware"
	"github.com/blues/dps/internal/model"
	"github.com/blues/dps/internal/receipt"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// BankSlipHandler 银行回单捐赠处理器
type BankSlipHandler struct {
	donationLogic *logic.DonationLogic
}

// NewBankSlipHandler 创建银行回单捐赠处理器
func NewBankSlipHandler(db *gorm.DB, receipts receipt.Dispatcher) *BankSlipHandler {
	return &BankSlipHandler{
		donationLogic: logic.NewDonationLogic(db, receipts),
	}
}

// SubmitBankSlip 提交银行回单捐赠，等待管理员审核
func (h *BankSlipHandler) SubmitBankSlip(c *gin.Context) {
	var req BankSlipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	donation, err := h.donationLogic.SubmitBankSlip(&logic.BankSlipInput{
		EventId:        req.EventId,
		UserId:         req.UserId,
		AmountMinor:    req.Amount * 100,
		Currency:       "lkr",
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		MobileNumber:   req.MobileNumber,
		Anonymous:      req.Anonymous,
		SupportMessage: req.SupportMessage,
		BankSlipURL:    req.BankSlipURL,
	})
	if err != nil {
		FailResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "银行回单捐赠已提交，等待管理员审核",
		ToDonationResponse(donation))
}

// ApproveBankSlip 审核通过银行回单捐赠（仅管理员）
func (h *BankSlipHandler) ApproveBankSlip(c *gin.Context) {
	donationId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的捐赠ID")
		return
	}

	principal := middleware.CurrentPrincipal(c)
	if principal == nil {
		ErrorResponse(c, http.StatusUnauthorized, "未登录")
		return
	}

	donation, err := h.donationLogic.ApproveBankSlip(donationId, principal.Id)
	if err != nil {
		FailResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "银行回单捐赠审核通过", ToDonationResponse(donation))
}

// ListBankSlipDonations 按状态列出银行回单捐赠（仅管理员）
func (h *BankSlipHandler) ListBankSlipDonations(c *gin.Context) {
	status := model.DonationStatus(c.Query("status"))

	donations, err := h.donationLogic.ListBankSlipDonations(status)
	if err != nil {
		FailResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "查询成功", ToDonationResponseList(donations))
}

// UpdateDonationStatus 按转移表更新捐赠状态（仅管理员）
func (h *BankSlipHandler) UpdateDonationStatus(c *gin.Context) {
	donationId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的捐赠ID")
		return
	}

	var req UpdateDonationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	principal := middleware.CurrentPrincipal(c)
	if principal == nil {
		ErrorResponse(c, http.StatusUnauthorized, "未登录")
		return
	}

	donation, err := h.donationLogic.UpdateDonationStatus(
		donationId, model.DonationStatus(req.Status), principal.Id)
	if err != nil {
		FailResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "捐赠状态更新成功", ToDonationResponse(donation))
}
