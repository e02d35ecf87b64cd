package handler

import (
	"net/http"
	"strconv"

	"github.com/blues/dps/internal/logic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DonationRecordHandler 捐赠查询处理器
type DonationRecordHandler struct {
	progressLogic *logic.ProgressLogic
}

// NewDonationRecordHandler 创建捐赠查询处理器
func NewDonationRecordHandler(db *gorm.DB) *DonationRecordHandler {
	return &DonationRecordHandler{
		progressLogic: logic.NewProgressLogic(db),
	}
}

// GetUserDonationSummary 获取用户捐赠汇总。没有捐赠时返回全零。
func (h *DonationRecordHandler) GetUserDonationSummary(c *gin.Context) {
	userId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的用户ID")
		return
	}

	summary, err := h.progressLogic.UserDonationSummary(userId)
	if err != nil {
		FailResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "查询成功", summary)
}

// GetUserDonationHistory 获取用户捐赠历史，按时间倒序
func (h *DonationRecordHandler) GetUserDonationHistory(c *gin.Context) {
	userId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的用户ID")
		return
	}

	history, err := h.progressLogic.UserDonationHistory(userId)
	if err != nil {
		FailResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "查询成功", history)
}

// GetOrganizerDonationProgress 获取主办方名下筹款活动的月度捐赠进度
func (h *DonationRecordHandler) GetOrganizerDonationProgress(c *gin.Context) {
	organizerId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的主办方ID")
		return
	}

	report, err := h.progressLogic.OrganizerDonationProgress(organizerId)
	if err != nil {
		FailResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "查询成功", report)
}
