package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/blues/dps/internal/logic"
	"github.com/blues/dps/internal/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// EventHandler 活动处理器
type EventHandler struct {
	eventLogic    *logic.EventLogic
	donationLogic *logic.DonationLogic
}

// NewEventHandler 创建活动处理器
func NewEventHandler(db *gorm.DB) *EventHandler {
	return &EventHandler{
		eventLogic:    logic.NewEventLogic(db),
		donationLogic: logic.NewDonationLogic(db, nil),
	}
}

// CreateEvent 创建活动
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	event := model.EventModel{
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		GreetingSentence: req.GreetingSentence,
		ImageURL:         req.ImageURL,
		Type:             model.EventType(req.Type),
		FundingGoal:      req.FundingGoal,
		EventDate:        req.EventDate,
		Location:         req.Location,
		OrganizerId:      req.OrganizerId,
	}
	if event.EventDate.IsZero() {
		event.EventDate = time.Now()
	}

	if err := h.eventLogic.CreateEvent(&event); err != nil {
		FailResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "活动创建成功", ToEventResponse(&event))
}

// GetEvents 获取活动列表
func (h *EventHandler) GetEvents(c *gin.Context) {
	events, err := h.eventLogic.GetEvents()
	if err != nil {
		FailResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "查询成功", ToEventResponseList(events))
}

// GetEvent 获取活动详情
func (h *EventHandler) GetEvent(c *gin.Context) {
	eventId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	event, err := h.eventLogic.GetEvent(eventId)
	if err != nil {
		FailResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "查询成功", ToEventResponse(event))
}

// ReconcileEvent 以账本为准重算活动筹款总额（仅管理员）
func (h *EventHandler) ReconcileEvent(c *gin.Context) {
	eventId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	result, err := h.donationLogic.ReconcileEventTotal(eventId)
	if err != nil {
		FailResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "对账完成", result)
}
