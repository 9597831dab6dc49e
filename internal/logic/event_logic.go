package logic

import (
	"time"

	"github.com/Kubistream/kubi-main-app-sub000/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChainEventLogic 链上事件审计表逻辑
type ChainEventLogic struct {
	db *gorm.DB
}

// NewChainEventLogic 创建链上事件逻辑
func NewChainEventLogic(db *gorm.DB) *ChainEventLogic {
	return &ChainEventLogic{db: db}
}

// CreateIfAbsent 按(tx_hash, log_index)插入事件记录，已存在时返回false
func (c *ChainEventLogic) CreateIfAbsent(event *model.ChainEventModel) (bool, error) {
	result := c.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_hash"}, {Name: "log_index"}},
		DoNothing: true,
	}).Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkProcessed 按(tx_hash, log_index)标记事件已处理
func (c *ChainEventLogic) MarkProcessed(txHash string, logIndex int64) error {
	return c.db.Model(&model.ChainEventModel{}).
		Where("tx_hash = ? AND log_index = ?", txHash, logIndex).
		Update("processed", true).Error
}

// FetchUnprocessed 取一批等待重放的事件记录，按写入顺序。
// olderThan用于避开watcher正在处理中的新事件。
func (c *ChainEventLogic) FetchUnprocessed(olderThan time.Time, limit int) ([]model.ChainEventModel, error) {
	var events []model.ChainEventModel
	err := c.db.Where("processed = ? AND created_at < ?", false, olderThan).
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// LastSeenBlock 返回该链已处理事件的最大区块号，没有记录时返回0。
// 未处理的记录不参与计算，游标不能越过等待重放的事件。
func (c *ChainEventLogic) LastSeenBlock(chainId int64) (int64, error) {
	var lastBlock int64
	err := c.db.Model(&model.ChainEventModel{}).
		Where("chain_id = ? AND processed = ?", chainId, true).
		Select("COALESCE(MAX(block_num), 0)").
		Scan(&lastBlock).Error
	if err != nil {
		return 0, err
	}
	return lastBlock, nil
}
