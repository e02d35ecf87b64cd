package logic

import (
	"errors"

	"github.com/blues/dps/internal/apperr"
	"github.com/blues/dps/internal/model"
	"gorm.io/gorm"
)

// EventLogic 活动业务逻辑
type EventLogic struct {
	db *gorm.DB
}

// NewEventLogic 创建活动业务逻辑
func NewEventLogic(db *gorm.DB) *EventLogic {
	return &EventLogic{db: db}
}

// CreateEvent 创建活动
func (e *EventLogic) CreateEvent(event *model.EventModel) error {
	if err := e.validateEvent(event); err != nil {
		return err
	}

	// 设置默认值
	event.RaisedAmount = 0
	if event.ProgrammeStatus == "" {
		event.ProgrammeStatus = model.ProgrammeStatusActive
	}

	if err := e.db.Create(event).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "创建活动失败", err)
	}

	return nil
}

// GetEvents 获取活动列表
func (e *EventLogic) GetEvents() ([]model.EventModel, error) {
	var events []model.EventModel
	if err := e.db.Order("created_at DESC").Find(&events).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "获取活动列表失败", err)
	}
	return events, nil
}

// GetEvent 获取活动详情
func (e *EventLogic) GetEvent(id int64) (*model.EventModel, error) {
	var event model.EventModel
	if err := e.db.First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "活动不存在")
		}
		return nil, apperr.Wrap(apperr.Internal, "获取活动详情失败", err)
	}
	return &event, nil
}

// validateEvent 验证活动数据
func (e *EventLogic) validateEvent(event *model.EventModel) error {
	if event.Title == "" {
		return apperr.New(apperr.Validation, "活动标题不能为空")
	}
	if !event.Type.IsValid() {
		return apperr.Newf(apperr.Validation, "无效的活动类型: %s", event.Type)
	}
	if event.OrganizerId == 0 {
		return apperr.New(apperr.Validation, "主办方ID不能为空")
	}
	// 筹款类活动必须有筹款目标
	if event.RaisesFunds() && event.FundingGoal <= 0 {
		return apperr.New(apperr.Validation, "筹款类活动必须设置筹款目标")
	}
	return nil
}
