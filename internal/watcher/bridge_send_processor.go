package watcher

import (
	"fmt"

	"github.com/Kubistream/kubi-main-app-sub000/internal/logger"
	"github.com/Kubistream/kubi-main-app-sub000/internal/logic"
	"github.com/Kubistream/kubi-main-app-sub000/internal/model"
)

// BridgeSendProcessor 跨链捐赠发起事件处理器
type BridgeSendProcessor struct {
	registryLogic *logic.RegistryLogic
	donationLogic *logic.DonationLogic
}

// NewBridgeSendProcessor 创建跨链发起事件处理器
func NewBridgeSendProcessor(registryLogic *logic.RegistryLogic, donationLogic *logic.DonationLogic) *BridgeSendProcessor {
	return &BridgeSendProcessor{
		registryLogic: registryLogic,
		donationLogic: donationLogic,
	}
}

// Process 处理跨链发起事件：落库pending记录，资金未到账，不入队通知
func (p *BridgeSendProcessor) Process(evt *ChainEvent) error {
	messageId, err := argHash(evt.Args, "messageId")
	if err != nil {
		return fmt.Errorf("dropping bridge send event %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}

	donor, err := argAddress(evt.Args, "donor")
	if err != nil {
		return fmt.Errorf("dropping bridge send event %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}
	recipientAddr, err := argAddress(evt.Args, "recipient")
	if err != nil {
		return fmt.Errorf("dropping bridge send event %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}
	tokenInAddr, err := argAddress(evt.Args, "tokenIn")
	if err != nil {
		return fmt.Errorf("dropping bridge send event %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}
	tokenOutAddr, err := argAddress(evt.Args, "tokenOut")
	if err != nil {
		return fmt.Errorf("dropping bridge send event %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}
	amountIn, err := argBigInt(evt.Args, "amountIn")
	if err != nil {
		return fmt.Errorf("dropping bridge send event %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}
	amountOut, err := argBigInt(evt.Args, "amountOut")
	if err != nil {
		return fmt.Errorf("dropping bridge send event %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}
	fee, err := argBigInt(evt.Args, "fee")
	if err != nil {
		return fmt.Errorf("dropping bridge send event %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}

	recipient, err := p.registryLogic.GetRecipientByWallet(recipientAddr)
	if err != nil {
		return fmt.Errorf("dropping bridge send event %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}
	tokenIn, err := p.registryLogic.GetTokenByAddress(evt.ChainId, tokenInAddr)
	if err != nil {
		return fmt.Errorf("dropping bridge send event %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}
	tokenOut, err := p.registryLogic.GetTokenByAddress(evt.ChainId, tokenOutAddr)
	if err != nil {
		return fmt.Errorf("dropping bridge send event %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}

	donation := &model.DonationModel{
		RecipientId:     recipient.Id,
		DonorAddress:    donor,
		TokenInId:       tokenIn.Id,
		TokenOutId:      tokenOut.Id,
		AmountIn:        amountIn.String(),
		AmountOut:       amountOut.String(),
		FeeAmount:       fee.String(),
		TxHash:          evt.TxHash,
		LogIndex:        evt.LogIndex,
		BlockNum:        evt.BlockNum,
		ChainId:         evt.ChainId,
		BlockTime:       evt.BlockTime,
		BridgeMessageId: messageId,
	}

	created, err := p.donationLogic.CreateBridgeSend(donation)
	if err != nil {
		return fmt.Errorf("failed to persist bridge send %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}
	if !created {
		logger.Debug("Bridge send %s/%d replayed, status refreshed", evt.TxHash, evt.LogIndex)
		return nil
	}

	logger.Info("Processed bridge send %s for recipient %d (message %s)",
		evt.TxHash, donation.RecipientId, messageId)
	return nil
}
