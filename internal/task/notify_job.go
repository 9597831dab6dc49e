package task

import (
	"fmt"
	"sync"
	"time"

	"github.com/Kubistream/kubi-main-app-sub000/internal/config"
	"github.com/Kubistream/kubi-main-app-sub000/internal/logger"
	"github.com/Kubistream/kubi-main-app-sub000/internal/logic"
	"github.com/Kubistream/kubi-main-app-sub000/internal/model"
	"github.com/Kubistream/kubi-main-app-sub000/internal/ws"
	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

// Broadcaster 推送出口，由ws.Hub实现
type Broadcaster interface {
	Broadcast(recipientId int64, msgType string, payload interface{}) error
}

// NotifyJob 通知队列投递任务。轮询持久化队列而不是内存channel，
// 重启后从pending记录继续，投递失败的记录保留在表里可重投。
type NotifyJob struct {
	notifyLogic   *logic.NotificationLogic
	registryLogic *logic.RegistryLogic
	donationLogic *logic.DonationLogic
	hub           Broadcaster
	pool          *ants.Pool
	interval      time.Duration
	batchSize     int
}

// NewNotifyJob 创建通知投递任务
func NewNotifyJob(db *gorm.DB, hub Broadcaster, cfg config.NotifyConfig) (*NotifyJob, error) {
	pool, err := ants.NewPool(cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch pool: %w", err)
	}

	return &NotifyJob{
		notifyLogic:   logic.NewNotificationLogic(db),
		registryLogic: logic.NewRegistryLogic(db),
		donationLogic: logic.NewDonationLogic(db),
		hub:           hub,
		pool:          pool,
		interval:      time.Duration(cfg.Interval) * time.Second,
		batchSize:     cfg.BatchSize,
	}, nil
}

// GetName 获取任务名称
func (j *NotifyJob) GetName() string {
	return "notification_dispatcher"
}

// GetSchedule 获取调度配置
func (j *NotifyJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

// Execute 执行一轮投递：取一批pending通知并发投递，等待全部完成
func (j *NotifyJob) Execute() {
	items, err := j.notifyLogic.FetchPending(j.batchSize)
	if err != nil {
		logger.Error("Failed to fetch pending notifications: %v", err)
		return
	}
	if len(items) == 0 {
		return
	}

	var wg sync.WaitGroup
	for i := range items {
		item := items[i]
		wg.Add(1)
		err := j.pool.Submit(func() {
			defer wg.Done()
			j.deliver(&item)
		})
		if err != nil {
			wg.Done()
			logger.Error("Failed to submit notification %d to pool: %v", item.Id, err)
		}
	}
	wg.Wait()
}

// deliver 投递单条通知，任何一步失败都标记on_process等待重投
func (j *NotifyJob) deliver(item *model.NotificationQueueModel) {
	alert, err := j.buildAlert(item)
	if err != nil {
		logger.Error("Failed to enrich notification %d: %v", item.Id, err)
		j.markOnProcess(item.Id)
		return
	}

	if err := j.hub.Broadcast(item.RecipientId, ws.MessageTypeDonation, alert); err != nil {
		logger.Error("Failed to broadcast notification %d: %v", item.Id, err)
		j.markOnProcess(item.Id)
		return
	}

	if err := j.notifyLogic.MarkDisplayed(item.Id); err != nil {
		logger.Error("Failed to mark notification %d displayed: %v", item.Id, err)
	}
}

// buildAlert 补全展示信息
func (j *NotifyJob) buildAlert(item *model.NotificationQueueModel) (*ws.DonationAlert, error) {
	recipient, err := j.registryLogic.GetRecipientById(item.RecipientId)
	if err != nil {
		return nil, fmt.Errorf("recipient %d lookup failed: %w", item.RecipientId, err)
	}
	token, err := j.registryLogic.GetTokenById(item.TokenId)
	if err != nil {
		return nil, fmt.Errorf("token %d lookup failed: %w", item.TokenId, err)
	}
	donation, err := j.donationLogic.GetByTxHash(item.TxHash)
	if err != nil {
		return nil, fmt.Errorf("donation %s lookup failed: %w", item.TxHash, err)
	}

	return &ws.DonationAlert{
		NotificationId: item.Id,
		RecipientName:  recipient.DisplayName,
		DonorAddress:   donation.DonorAddress,
		TokenSymbol:    token.Symbol,
		TokenDecimals:  token.Decimals,
		Amount:         item.Amount,
		FiatValue:      donation.FiatValue,
		Message:        donation.Message,
		MediaUrl:       donation.MediaUrl,
		TxHash:         item.TxHash,
	}, nil
}

func (j *NotifyJob) markOnProcess(id int64) {
	if err := j.notifyLogic.MarkOnProcess(id); err != nil {
		logger.Error("Failed to mark notification %d on_process: %v", id, err)
	}
}

// Release 释放协程池
func (j *NotifyJob) Release() {
	j.pool.Release()
}
