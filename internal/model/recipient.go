package model

import (
	"time"
)

// RecipientModel 主播（受赠人）注册表，由后台管理端维护，本服务只读
type RecipientModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WalletAddress string `json:"wallet_address" gorm:"uniqueIndex;not null"`
	DisplayName   string `json:"display_name" gorm:"not null"`
	AvatarUrl     string `json:"avatar_url"`
	Active        bool   `json:"active" gorm:"default:true"`
}

// TableName 自定义表名
func (RecipientModel) TableName() string {
	return "recipient"
}
