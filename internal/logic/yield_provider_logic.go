package logic

import (
	"time"

	"github.com/Kubistream/kubi-main-app-sub000/internal/logger"
	"github.com/Kubistream/kubi-main-app-sub000/internal/model"
	"gorm.io/gorm"
)

// YieldProviderLogic 收益提供方配置查询
type YieldProviderLogic struct {
	db *gorm.DB
}

// NewYieldProviderLogic 创建收益提供方配置逻辑
func NewYieldProviderLogic(db *gorm.DB) *YieldProviderLogic {
	return &YieldProviderLogic{db: db}
}

// ActiveProviders 返回所有启用的收益提供方，按ID排序保证处理顺序稳定。
// 配置非法的条目在这里剔除并告警，后续流程不再判空。
func (y *YieldProviderLogic) ActiveProviders() ([]model.YieldProviderModel, error) {
	var providers []model.YieldProviderModel
	err := y.db.Where("status = ?", model.YieldProviderStatusActive).
		Order("id ASC").
		Find(&providers).Error
	if err != nil {
		return nil, err
	}

	valid := providers[:0]
	for _, p := range providers {
		if err := p.Validate(); err != nil {
			logger.Warn("Skipping invalid yield provider %d: %v", p.Id, err)
			continue
		}
		valid = append(valid, p)
	}
	return valid, nil
}

// TouchLastRebase 记录最近一次rebase成功时间
func (y *YieldProviderLogic) TouchLastRebase(id int64, t time.Time) error {
	return y.db.Model(&model.YieldProviderModel{}).
		Where("id = ?", id).
		Update("last_rebase_at", t).Error
}
