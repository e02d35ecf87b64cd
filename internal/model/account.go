package model

import (
	"time"
)

// AccountModel 平台账号，管理员/主办方/普通用户统一存储，按角色区分
type AccountModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email     string      `json:"email" gorm:"not null;uniqueIndex"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      AccountRole `json:"role" gorm:"not null;index"`
}

// TableName 自定义表名
func (AccountModel) TableName() string {
	return "account"
}

// AccountRole 账号角色
type AccountRole string

const (
	RoleAdmin     AccountRole = "admin"     // 管理员
	RoleOrganizer AccountRole = "organizer" // 活动主办方
	RoleUser      AccountRole = "user"      // 普通用户
)
