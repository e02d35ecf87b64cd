package model

import (
	"time"
)

// EventModel 慈善活动模型
type EventModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	Title            string `json:"title" gorm:"not null" binding:"required"`
	Description      string `json:"description" gorm:"type:text"`
	Category         string `json:"category"`
	GreetingSentence string `json:"greeting_sentence"`
	ImageURL         string `json:"image_url"`

	// 活动类型
	Type EventType `json:"type" gorm:"not null"`

	// 筹款信息：两者均为主货币单位，raised_amount 是账本的缓存值
	FundingGoal  float64 `json:"funding_goal" gorm:"default:0"`
	RaisedAmount float64 `json:"raised_amount" gorm:"default:0"`

	// 状态
	ProgrammeStatus ProgrammeStatus `json:"programme_status" gorm:"default:'Active'"`

	// 时间与地点
	EventDate time.Time `json:"event_date"`
	Location  string    `json:"location"`

	// 主办方
	OrganizerId int64 `json:"organizer_id" gorm:"not null;index"`
}

// TableName 自定义表名
func (EventModel) TableName() string {
	return "event"
}

// RaisesFunds 该活动类型是否有筹款目标
func (e *EventModel) RaisesFunds() bool {
	return e.Type == EventTypeFundraising || e.Type == EventTypeMixed
}

// EventType 活动类型
type EventType string

const (
	EventTypeFundraising     EventType = "fundraising"      // 筹款
	EventTypeGoodsCollection EventType = "goods_collection" // 物资募集
	EventTypeVolunteer       EventType = "volunteer"        // 志愿服务
	EventTypeMixed           EventType = "mixed"            // 混合
)

// IsValid 校验活动类型取值
func (t EventType) IsValid() bool {
	switch t {
	case EventTypeFundraising, EventTypeGoodsCollection, EventTypeVolunteer, EventTypeMixed:
		return true
	}
	return false
}

// ProgrammeStatus 活动进度状态
type ProgrammeStatus string

const (
	ProgrammeStatusActive    ProgrammeStatus = "Active"    // 进行中
	ProgrammeStatusExpired   ProgrammeStatus = "Expired"   // 已过期
	ProgrammeStatusCompleted ProgrammeStatus = "Completed" // 已达成目标，不会自动回退
)

// EventParticipantModel 活动参与者集合，(event_id, user_id) 保证集合语义
type EventParticipantModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	EventId int64 `json:"event_id" gorm:"not null;uniqueIndex:ux_event_participant"`
	UserId  int64 `json:"user_id" gorm:"not null;uniqueIndex:ux_event_participant"`
}

// TableName 自定义表名
func (EventParticipantModel) TableName() string {
	return "event_participant"
}
