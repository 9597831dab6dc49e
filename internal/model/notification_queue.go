package model

import (
	"time"
)

// 通知队列状态，记录只做状态流转，不删除
const (
	NotificationStatusPending   = "pending"    // 等待投递
	NotificationStatusDisplayed = "displayed"  // 已推送给在线订阅者
	NotificationStatusOnProcess = "on_process" // 投递失败，等待重投
)

// NotificationQueueModel 捐赠通知的持久化队列
type NotificationQueueModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RecipientId int64     `json:"recipient_id" gorm:"index;not null"`
	TxHash      string    `json:"tx_hash" gorm:"not null"`
	TokenId     int64     `json:"token_id" gorm:"not null"`
	Amount      string    `json:"amount" gorm:"not null"`
	EnqueuedAt  time.Time `json:"enqueued_at" gorm:"index;not null"`
	Status      string    `json:"status" gorm:"index;default:pending"`
}

// TableName 自定义表名
func (NotificationQueueModel) TableName() string {
	return "notification_queue"
}
