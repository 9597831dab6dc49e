package task

import (
	"time"

	"github.com/Kubistream/kubi-main-app-sub000/internal/logger"
	"github.com/Kubistream/kubi-main-app-sub000/internal/logic"
	"github.com/Kubistream/kubi-main-app-sub000/internal/watcher"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

const (
	replayInterval  = 30 * time.Second // 重放轮询间隔
	replayBatchSize = 100              // 单轮重放条数上限
	replayMinAge    = 30 * time.Second // 只重放已沉淀的记录，避开watcher在途事件
)

// ReplayJob 事件重放任务。watcher处理失败的事件保留在审计表里未处理，
// 这里定期重试；跨链到账先于来源记录的事件靠它在来源落库后补投通知。
type ReplayJob struct {
	eventLogic *logic.ChainEventLogic
	handler    *watcher.Handler
	minAge     time.Duration
}

// NewReplayJob 创建事件重放任务
func NewReplayJob(db *gorm.DB) *ReplayJob {
	return &ReplayJob{
		eventLogic: logic.NewChainEventLogic(db),
		handler:    watcher.NewHandler(db),
		minAge:     replayMinAge,
	}
}

// GetName 获取任务名称
func (j *ReplayJob) GetName() string {
	return "event_replayer"
}

// GetSchedule 获取调度配置
func (j *ReplayJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(replayInterval)
}

// Execute 执行一轮重放。仍在等待前置条件的事件保留到下一轮。
func (j *ReplayJob) Execute() {
	events, err := j.eventLogic.FetchUnprocessed(time.Now().Add(-j.minAge), replayBatchSize)
	if err != nil {
		logger.Error("Failed to fetch unprocessed events: %v", err)
		return
	}
	if len(events) == 0 {
		return
	}

	replayed := 0
	for i := range events {
		if err := j.handler.Replay(&events[i]); err != nil {
			logger.Info("Event %s/%d still waiting: %v", events[i].TxHash, events[i].LogIndex, err)
			continue
		}
		replayed++
	}
	logger.Info("Replayed %d/%d pending events", replayed, len(events))
}
