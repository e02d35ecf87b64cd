package model

import (
	"time"
)

// GatewayEventModel 已处理的支付网关事件，唯一索引用于重复投递去重
type GatewayEventModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	GatewayEventId string `json:"gateway_event_id" gorm:"not null;uniqueIndex:ux_gateway_event"`
	EventType      string `json:"event_type" gorm:"not null"`
	DonationId     int64  `json:"donation_id"`
}

// TableName 自定义表名
func (GatewayEventModel) TableName() string {
	return "gateway_event"
}
