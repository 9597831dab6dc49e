package model

import (
	"time"
)

// TokenModel 代币注册表，由后台管理端维护，本服务只读
type TokenModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ChainId  int64   `json:"chain_id" gorm:"uniqueIndex:idx_token_chain_addr;not null"`
	Address  string  `json:"address" gorm:"uniqueIndex:idx_token_chain_addr;not null"`
	Symbol   string  `json:"symbol" gorm:"not null"`
	Name     string  `json:"name"`
	Decimals int     `json:"decimals" gorm:"default:18"`
	PriceUsd float64 `json:"price_usd"`
	Active   bool    `json:"active" gorm:"default:true"`
}

// TableName 自定义表名
func (TokenModel) TableName() string {
	return "token"
}
