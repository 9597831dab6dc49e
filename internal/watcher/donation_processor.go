package watcher

import (
	"fmt"

	"github.com/Kubistream/kubi-main-app-sub000/internal/logger"
	"github.com/Kubistream/kubi-main-app-sub000/internal/logic"
	"github.com/Kubistream/kubi-main-app-sub000/internal/model"
)

// DonationProcessor 直接捐赠事件处理器
type DonationProcessor struct {
	registryLogic *logic.RegistryLogic
	donationLogic *logic.DonationLogic
}

// NewDonationProcessor 创建直接捐赠事件处理器
func NewDonationProcessor(registryLogic *logic.RegistryLogic, donationLogic *logic.DonationLogic) *DonationProcessor {
	return &DonationProcessor{
		registryLogic: registryLogic,
		donationLogic: donationLogic,
	}
}

// Process 处理直接捐赠事件：解析身份，落库并入队通知
func (p *DonationProcessor) Process(evt *ChainEvent) error {
	donation, err := p.buildDonation(evt)
	if err != nil {
		// 注册表缺失属于不可恢复的数据错误，丢弃不重试
		return fmt.Errorf("dropping donation event %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}

	created, err := p.donationLogic.CreateConfirmed(donation)
	if err != nil {
		return fmt.Errorf("failed to persist donation %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}
	if !created {
		logger.Debug("Donation %s/%d replayed, status refreshed", evt.TxHash, evt.LogIndex)
		return nil
	}

	logger.Info("Processed donation %s for recipient %d, amount %s",
		evt.TxHash, donation.RecipientId, donation.AmountIn)
	return nil
}

// buildDonation 从事件组装捐赠记录
func (p *DonationProcessor) buildDonation(evt *ChainEvent) (*model.DonationModel, error) {
	donor, err := argAddress(evt.Args, "donor")
	if err != nil {
		return nil, err
	}
	recipientAddr, err := argAddress(evt.Args, "recipient")
	if err != nil {
		return nil, err
	}
	tokenInAddr, err := argAddress(evt.Args, "tokenIn")
	if err != nil {
		return nil, err
	}
	tokenOutAddr, err := argAddress(evt.Args, "tokenOut")
	if err != nil {
		return nil, err
	}
	amountIn, err := argBigInt(evt.Args, "amountIn")
	if err != nil {
		return nil, err
	}
	amountOut, err := argBigInt(evt.Args, "amountOut")
	if err != nil {
		return nil, err
	}
	fee, err := argBigInt(evt.Args, "fee")
	if err != nil {
		return nil, err
	}

	recipient, err := p.registryLogic.GetRecipientByWallet(recipientAddr)
	if err != nil {
		return nil, err
	}
	tokenIn, err := p.registryLogic.GetTokenByAddress(evt.ChainId, tokenInAddr)
	if err != nil {
		return nil, err
	}
	tokenOut, err := p.registryLogic.GetTokenByAddress(evt.ChainId, tokenOutAddr)
	if err != nil {
		return nil, err
	}

	return &model.DonationModel{
		RecipientId:  recipient.Id,
		DonorAddress: donor,
		TokenInId:    tokenIn.Id,
		TokenOutId:   tokenOut.Id,
		AmountIn:     amountIn.String(),
		AmountOut:    amountOut.String(),
		FeeAmount:    fee.String(),
		TxHash:       evt.TxHash,
		LogIndex:     evt.LogIndex,
		BlockNum:     evt.BlockNum,
		ChainId:      evt.ChainId,
		BlockTime:    evt.BlockTime,
	}, nil
}
