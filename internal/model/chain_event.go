package model

import (
	"time"
)

// ChainEventModel 链上事件记录，兼作watcher断点续扫的游标来源。
// 处理失败的事件保留processed=false，由重放任务兜底。
type ChainEventModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ChainId         int64     `json:"chain_id" gorm:"index:idx_event_chain_block;not null"`
	ContractAddress string    `json:"contract_address" gorm:"not null"`
	ContractName    string    `json:"contract_name"`
	EventName       string    `json:"event_name" gorm:"not null"`
	TxHash          string    `json:"tx_hash" gorm:"uniqueIndex:idx_event_tx_log;not null"`
	LogIndex        int64     `json:"log_index" gorm:"uniqueIndex:idx_event_tx_log;not null"`
	BlockNum        int64     `json:"block_num" gorm:"index:idx_event_chain_block;not null"`
	BlockTime       time.Time `json:"block_time"`
	Data            string    `json:"data" gorm:"type:text"`
	Processed       bool      `json:"processed" gorm:"index;default:false"`
}

// TableName 自定义表名
func (ChainEventModel) TableName() string {
	return "chain_event"
}
