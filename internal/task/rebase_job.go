package task

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/Kubistream/kubi-main-app-sub000/internal/config"
	"github.com/Kubistream/kubi-main-app-sub000/internal/logger"
	"github.com/Kubistream/kubi-main-app-sub000/internal/logic"
	"github.com/Kubistream/kubi-main-app-sub000/internal/model"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// errRebaseSkipped 本轮跳过该代币，不是硬错误，info级别记录
var errRebaseSkipped = errors.New("rebase skipped")

// TokenGateway 收益代币合约读写接口，由chain.Gateway实现
type TokenGateway interface {
	ReadScalingFactor(ctx context.Context, chainId int64, tokenAddress string) (*big.Int, error)
	SubmitScalingFactor(ctx context.Context, chainId int64, tokenAddress string, newFactor *big.Int) (string, error)
}

// RebaseJob 收益代币rebase任务。对每个启用的收益提供方读取链上缩放因子，
// 按配置利率推进并提交交易。同一签名key下代币必须串行处理以保证nonce顺序。
type RebaseJob struct {
	providerLogic *logic.YieldProviderLogic
	gateway       TokenGateway
	cfg           config.RebaseConfig
}

// NewRebaseJob 创建rebase任务
func NewRebaseJob(db *gorm.DB, gateway TokenGateway, cfg config.RebaseConfig) *RebaseJob {
	return &RebaseJob{
		providerLogic: logic.NewYieldProviderLogic(db),
		gateway:       gateway,
		cfg:           cfg,
	}
}

// GetName 获取任务名称
func (j *RebaseJob) GetName() string {
	return "yield_rebase"
}

// GetSchedule 获取调度配置
func (j *RebaseJob) GetSchedule() gocron.JobDefinition {
	return gocron.CronJob(j.cfg.Cron, false)
}

// Execute 执行一轮rebase。单个代币失败不中断其余代币。
func (j *RebaseJob) Execute() {
	providers, err := j.providerLogic.ActiveProviders()
	if err != nil {
		logger.Error("Failed to load yield providers: %v", err)
		return
	}
	if len(providers) == 0 {
		return
	}

	logger.Info("Starting rebase run for %d providers", len(providers))
	ctx := context.Background()

	applied := 0
	for _, provider := range providers {
		if err := j.rebaseProvider(ctx, provider); err != nil {
			if errors.Is(err, errRebaseSkipped) {
				logger.Info("Rebase skipped for provider %s (%s)", provider.Name, provider.TokenAddress)
			} else {
				logger.Error("Rebase failed for provider %s: %v", provider.Name, err)
			}
			continue
		}
		applied++
	}

	logger.Info("Rebase run completed, applied %d/%d providers", applied, len(providers))
}

// rebaseProvider 处理单个收益提供方
func (j *RebaseJob) rebaseProvider(ctx context.Context, provider model.YieldProviderModel) error {
	if provider.Rate == 0 && provider.SkipIfZero {
		return errRebaseSkipped
	}

	current, err := j.gateway.ReadScalingFactor(ctx, provider.ChainId, provider.TokenAddress)
	if err != nil {
		return err
	}

	daily := dailyGrowth(provider.Rate, provider.RateMode)
	perRun := perRunGrowth(daily, j.cfg.RunsPerDay)
	candidate := nextScalingFactor(current, perRun)

	// 缩放因子只增不减，取整或零利率导致的候选值不前进时跳过
	if candidate.Cmp(current) <= 0 {
		return errRebaseSkipped
	}

	txHash, err := j.gateway.SubmitScalingFactor(ctx, provider.ChainId, provider.TokenAddress, candidate)
	if err != nil {
		return err
	}

	if err := j.providerLogic.TouchLastRebase(provider.Id, time.Now()); err != nil {
		logger.Warn("Failed to record rebase time for provider %s: %v", provider.Name, err)
	}

	logger.Info("Rebased %s: %s -> %s (tx %s)",
		provider.Name, current.String(), candidate.String(), txHash)
	return nil
}
