package task

import (
	"github.com/Kubistream/kubi-main-app-sub000/internal/config"
	"github.com/Kubistream/kubi-main-app-sub000/internal/logger"
	"github.com/Kubistream/kubi-main-app-sub000/internal/ws"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// Job 定时任务接口
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// Manager 任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	notifyJob *NotifyJob
}

// NewManager 创建任务管理器并注册所有任务
func NewManager(db *gorm.DB, hub *ws.Hub, gateway TokenGateway, cfg *config.Config) (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	m := &Manager{scheduler: s}

	notifyJob, err := NewNotifyJob(db, hub, cfg.Notify)
	if err != nil {
		return nil, err
	}
	m.notifyJob = notifyJob
	m.register(notifyJob)
	m.register(NewReplayJob(db))

	if cfg.Rebase.Enabled {
		m.register(NewRebaseJob(db, gateway, cfg.Rebase))
	} else {
		logger.Info("Rebase task disabled by config")
	}

	return m, nil
}

// register 注册任务。SingletonMode保证任务超过自身间隔时不并发执行，
// 超时的一轮会被重新调度而不是叠加运行。
func (m *Manager) register(job Job) {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Start 启动调度器
func (m *Manager) Start() {
	m.scheduler.Start()
	logger.Info("Task manager started successfully")
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	if m.notifyJob != nil {
		m.notifyJob.Release()
	}
	logger.Info("Task manager stopped")
}
