package watcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Kubistream/kubi-main-app-sub000/internal/chain"
	"github.com/Kubistream/kubi-main-app-sub000/internal/logger"
	"github.com/Kubistream/kubi-main-app-sub000/internal/logic"
	"github.com/Kubistream/kubi-main-app-sub000/internal/model"
	"gorm.io/gorm"
)

// Handler 事件处理入口，按事件类型分发给对应的处理器
type Handler struct {
	eventLogic     *logic.ChainEventLogic
	donationProc   *DonationProcessor
	bridgeSendProc *BridgeSendProcessor
	bridgeRecvProc *BridgeReceiveProcessor
}

// NewHandler 创建事件处理入口
func NewHandler(db *gorm.DB) *Handler {
	registryLogic := logic.NewRegistryLogic(db)
	donationLogic := logic.NewDonationLogic(db)

	return &Handler{
		eventLogic:     logic.NewChainEventLogic(db),
		donationProc:   NewDonationProcessor(registryLogic, donationLogic),
		bridgeSendProc: NewBridgeSendProcessor(registryLogic, donationLogic),
		bridgeRecvProc: NewBridgeReceiveProcessor(registryLogic, donationLogic),
	}
}

// HandleEvent 处理单个事件。处理失败的事件保留未处理的审计记录，
// 游标不会越过它，由重放任务兜底。
func (h *Handler) HandleEvent(evt *ChainEvent) error {
	if err := h.writeAudit(evt); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}

	if err := h.dispatch(evt); err != nil {
		return err
	}

	h.markProcessed(evt.TxHash, evt.LogIndex)
	return nil
}

// Replay 重放一条未处理的审计记录。返回错误表示该记录应保留到下一轮重放；
// 无法恢复的数据错误直接丢弃并标记已处理。
func (h *Handler) Replay(audit *model.ChainEventModel) error {
	evt, err := eventFromAudit(audit)
	if err != nil {
		logger.Error("Dropping undecodable event %s/%d: %v", audit.TxHash, audit.LogIndex, err)
		h.markProcessed(audit.TxHash, audit.LogIndex)
		return nil
	}

	if err := h.dispatch(evt); err != nil {
		if errors.Is(err, logic.ErrBridgeOriginNotFound) {
			// 来源链记录还没落库，保留到下一轮
			return err
		}
		logger.Error("Dropping unrecoverable event %s/%d: %v", audit.TxHash, audit.LogIndex, err)
		h.markProcessed(audit.TxHash, audit.LogIndex)
		return nil
	}

	h.markProcessed(audit.TxHash, audit.LogIndex)
	return nil
}

// dispatch 按事件类型分发给处理器
func (h *Handler) dispatch(evt *ChainEvent) error {
	switch evt.EventName {
	case chain.EventDonationReceived:
		return h.donationProc.Process(evt)
	case chain.EventDonationBridgeSent:
		return h.bridgeSendProc.Process(evt)
	case chain.EventDonationBridgeReceived:
		return h.bridgeRecvProc.Process(evt)
	default:
		logger.Debug("Ignoring unhandled event %s from %s", evt.EventName, evt.ContractName)
		return nil
	}
}

// writeAudit 写入事件审计记录，重复事件静默跳过
func (h *Handler) writeAudit(evt *ChainEvent) error {
	dataJSON, err := json.Marshal(evt.Args)
	if err != nil {
		return fmt.Errorf("failed to marshal event args: %w", err)
	}

	audit := &model.ChainEventModel{
		ChainId:         evt.ChainId,
		ContractAddress: evt.ContractAddress,
		ContractName:    evt.ContractName,
		EventName:       evt.EventName,
		TxHash:          evt.TxHash,
		LogIndex:        evt.LogIndex,
		BlockNum:        evt.BlockNum,
		BlockTime:       evt.BlockTime,
		Data:            string(dataJSON),
	}

	created, err := h.eventLogic.CreateIfAbsent(audit)
	if err != nil {
		return err
	}
	if !created {
		logger.Debug("Event %s/%d already recorded, reprocessing for idempotent upsert", evt.TxHash, evt.LogIndex)
	}
	return nil
}

func (h *Handler) markProcessed(txHash string, logIndex int64) {
	if err := h.eventLogic.MarkProcessed(txHash, logIndex); err != nil {
		logger.Warn("Failed to mark event %s/%d processed: %v", txHash, logIndex, err)
	}
}

// eventFromAudit 从审计记录还原事件。数值参数用json.Number解码避免精度丢失。
func eventFromAudit(audit *model.ChainEventModel) (*ChainEvent, error) {
	args := make(map[string]interface{})
	dec := json.NewDecoder(strings.NewReader(audit.Data))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("failed to decode event args: %w", err)
	}

	return &ChainEvent{
		ChainId:         audit.ChainId,
		ContractName:    audit.ContractName,
		ContractAddress: audit.ContractAddress,
		EventName:       audit.EventName,
		TxHash:          audit.TxHash,
		LogIndex:        audit.LogIndex,
		BlockNum:        audit.BlockNum,
		BlockTime:       audit.BlockTime,
		Args:            args,
	}, nil
}
