package logic

import (
	"errors"
	"time"

	"github.com/Kubistream/kubi-main-app-sub000/internal/model"
	"gorm.io/gorm"
)

// NotificationLogic 通知队列业务逻辑
type NotificationLogic struct {
	db *gorm.DB
}

// NewNotificationLogic 创建通知队列业务逻辑
func NewNotificationLogic(db *gorm.DB) *NotificationLogic {
	return &NotificationLogic{db: db}
}

// EnqueueTx 在给定事务内入队一条通知
func (n *NotificationLogic) EnqueueTx(tx *gorm.DB, item *model.NotificationQueueModel) error {
	if item.Status == "" {
		item.Status = model.NotificationStatusPending
	}
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now()
	}
	return tx.Create(item).Error
}

// FetchPending 按入队时间取一批待投递的通知，最旧优先
func (n *NotificationLogic) FetchPending(limit int) ([]model.NotificationQueueModel, error) {
	var items []model.NotificationQueueModel
	err := n.db.Where("status = ?", model.NotificationStatusPending).
		Order("enqueued_at ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// MarkDisplayed 标记已推送
func (n *NotificationLogic) MarkDisplayed(id int64) error {
	return n.db.Model(&model.NotificationQueueModel{}).
		Where("id = ?", id).
		Update("status", model.NotificationStatusDisplayed).Error
}

// MarkOnProcess 标记投递失败，等待重投
func (n *NotificationLogic) MarkOnProcess(id int64) error {
	return n.db.Model(&model.NotificationQueueModel{}).
		Where("id = ?", id).
		Update("status", model.NotificationStatusOnProcess).Error
}

// Retry 将失败的通知重置为待投递
func (n *NotificationLogic) Retry(id int64) error {
	result := n.db.Model(&model.NotificationQueueModel{}).
		Where("id = ? AND status = ?", id, model.NotificationStatusOnProcess).
		Update("status", model.NotificationStatusPending)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("notification not found or not retryable")
	}
	return nil
}

// CountByStatus 按状态统计队列
func (n *NotificationLogic) CountByStatus() (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := n.db.Model(&model.NotificationQueueModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
