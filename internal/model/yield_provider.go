package model

import (
	"fmt"
	"strings"
	"time"
)

// 收益提供方状态
const (
	YieldProviderStatusActive     = "active"
	YieldProviderStatusPaused     = "paused"
	YieldProviderStatusDeprecated = "deprecated"
)

// 利率模式
const (
	RateModeApr = "apr"
	RateModeApy = "apy"
)

// YieldProviderModel 收益提供方配置，由后台管理端维护，本服务只读（last_rebase_at除外）
type YieldProviderModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name         string     `json:"name" gorm:"not null"`
	ChainId      int64      `json:"chain_id" gorm:"not null"`
	TokenAddress string     `json:"token_address" gorm:"not null"` // 收益代币（kToken）合约地址
	Status       string     `json:"status" gorm:"index;default:active"`
	Rate         float64    `json:"rate" gorm:"not null"` // 百分比，如 12 表示 12%
	RateMode     string     `json:"rate_mode" gorm:"default:apr"`
	LastRebaseAt *time.Time `json:"last_rebase_at"`
	SkipIfZero   bool       `json:"skip_if_zero" gorm:"default:true"`
}

// TableName 自定义表名
func (YieldProviderModel) TableName() string {
	return "yield_provider"
}

// Validate 配置加载后统一校验，避免每次使用时判空
func (p *YieldProviderModel) Validate() error {
	if p.TokenAddress == "" {
		return fmt.Errorf("provider %s: token_address is required", p.Name)
	}
	if p.Rate < 0 {
		return fmt.Errorf("provider %s: rate must not be negative", p.Name)
	}
	switch strings.ToLower(p.RateMode) {
	case RateModeApr, RateModeApy:
	default:
		return fmt.Errorf("provider %s: unknown rate mode %s", p.Name, p.RateMode)
	}
	return nil
}
