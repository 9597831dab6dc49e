package model

import (
	"time"
)

// 捐赠记录状态
const (
	DonationStatusPending   = "pending"   // 跨链发起，等待目标链确认
	DonationStatusConfirmed = "confirmed" // 资金已到账
	DonationStatusOrphaned  = "orphaned"  // 所在区块被重组
)

// DonationModel 捐赠记录，(tx_hash, log_index) 全局唯一，日志重放时按该键去重
type DonationModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RecipientId  int64     `json:"recipient_id" gorm:"index;not null"`
	DonorAddress string    `json:"donor_address" gorm:"not null"`
	TokenInId    int64     `json:"token_in_id" gorm:"not null"`
	TokenOutId   int64     `json:"token_out_id" gorm:"not null"`
	AmountIn     string    `json:"amount_in" gorm:"not null"` // 原始整数串，保留合约精度
	AmountOut    string    `json:"amount_out"`
	FeeAmount    string    `json:"fee_amount"`
	TxHash       string    `json:"tx_hash" gorm:"uniqueIndex:idx_donation_tx_log;not null"`
	LogIndex     int64     `json:"log_index" gorm:"uniqueIndex:idx_donation_tx_log;not null"`
	BlockNum     int64     `json:"block_num" gorm:"not null"`
	ChainId      int64     `json:"chain_id" gorm:"not null"`
	BlockTime    time.Time `json:"block_time"`
	Message      string    `json:"message"`
	MediaUrl     string    `json:"media_url"`
	FiatValue    float64   `json:"fiat_value"`
	Status       string    `json:"status" gorm:"default:confirmed"`

	// 跨链字段
	IsBridged        bool   `json:"is_bridged" gorm:"default:false"`
	BridgeMessageId  string `json:"bridge_message_id" gorm:"index"`
	OriginChainId    int64  `json:"origin_chain_id"`
	ParentDonationId int64  `json:"parent_donation_id"`
}

// TableName 自定义表名
func (DonationModel) TableName() string {
	return "donation"
}
