package watcher

import (
	"errors"
	"fmt"

	"github.com/Kubistream/kubi-main-app-sub000/internal/logger"
	"github.com/Kubistream/kubi-main-app-sub000/internal/logic"
	"github.com/Kubistream/kubi-main-app-sub000/internal/model"
)

// BridgeReceiveProcessor 跨链捐赠到账事件处理器
type BridgeReceiveProcessor struct {
	registryLogic *logic.RegistryLogic
	donationLogic *logic.DonationLogic
}

// NewBridgeReceiveProcessor 创建跨链到账事件处理器
func NewBridgeReceiveProcessor(registryLogic *logic.RegistryLogic, donationLogic *logic.DonationLogic) *BridgeReceiveProcessor {
	return &BridgeReceiveProcessor{
		registryLogic: registryLogic,
		donationLogic: donationLogic,
	}
}

// Process 处理跨链到账事件：创建目标链记录，确认来源记录并入队通知
func (p *BridgeReceiveProcessor) Process(evt *ChainEvent) error {
	messageId, err := argHash(evt.Args, "messageId")
	if err != nil {
		return fmt.Errorf("dropping bridge receive event %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}
	tokenOutAddr, err := argAddress(evt.Args, "tokenOut")
	if err != nil {
		return fmt.Errorf("dropping bridge receive event %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}
	amountOut, err := argBigInt(evt.Args, "amountOut")
	if err != nil {
		return fmt.Errorf("dropping bridge receive event %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}

	tokenOut, err := p.registryLogic.GetTokenByAddress(evt.ChainId, tokenOutAddr)
	if err != nil {
		return fmt.Errorf("dropping bridge receive event %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}

	dest := &model.DonationModel{
		TokenOutId:      tokenOut.Id,
		AmountOut:       amountOut.String(),
		TxHash:          evt.TxHash,
		LogIndex:        evt.LogIndex,
		BlockNum:        evt.BlockNum,
		ChainId:         evt.ChainId,
		BlockTime:       evt.BlockTime,
		BridgeMessageId: messageId,
	}

	created, err := p.donationLogic.ConfirmBridgeReceive(dest)
	if err != nil {
		if errors.Is(err, logic.ErrBridgeOriginNotFound) {
			// 目标链事件先到，等来源链记录落库后由重放兜底
			return fmt.Errorf("bridge receive %s/%d arrived before origin record (message %s): %w",
				evt.TxHash, evt.LogIndex, messageId, err)
		}
		return fmt.Errorf("failed to confirm bridge receive %s/%d: %w", evt.TxHash, evt.LogIndex, err)
	}
	if !created {
		logger.Debug("Bridge receive %s/%d replayed", evt.TxHash, evt.LogIndex)
		return nil
	}

	logger.Info("Confirmed bridged donation (message %s) on chain %d", messageId, evt.ChainId)
	return nil
}
