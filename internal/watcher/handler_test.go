package watcher

import (
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/Kubistream/kubi-main-app-sub000/internal/chain"
	"github.com/Kubistream/kubi-main-app-sub000/internal/database"
	"github.com/Kubistream/kubi-main-app-sub000/internal/logic"
	"github.com/Kubistream/kubi-main-app-sub000/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var (
	donorAddr     = common.HexToAddress("0xAAA0000000000000000000000000000000000001")
	recipientAddr = common.HexToAddress("0xBBB0000000000000000000000000000000000001")
	usdcAddr      = common.HexToAddress("0xCCC0000000000000000000000000000000000001")
	kusdAddr      = common.HexToAddress("0xCCC0000000000000000000000000000000000002")
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedRegistry(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&model.RecipientModel{
		WalletAddress: recipientAddr.Hex(),
		DisplayName:   "streamer-one",
		Active:        true,
	}).Error)
	require.NoError(t, db.Create(&model.TokenModel{
		ChainId: 1, Address: usdcAddr.Hex(), Symbol: "USDC", Decimals: 6, Active: true,
	}).Error)
	require.NoError(t, db.Create(&model.TokenModel{
		ChainId: 1, Address: kusdAddr.Hex(), Symbol: "kUSD", Decimals: 6, Active: true,
	}).Error)
	// 目标链上的代币
	require.NoError(t, db.Create(&model.TokenModel{
		ChainId: 137, Address: kusdAddr.Hex(), Symbol: "kUSD", Decimals: 6, Active: true,
	}).Error)
}

func donationEvent(txHash string, logIndex int64) *ChainEvent {
	return &ChainEvent{
		ChainId:         1,
		ContractName:    "donation_router",
		ContractAddress: "0xDDD0000000000000000000000000000000000001",
		EventName:       chain.EventDonationReceived,
		TxHash:          txHash,
		LogIndex:        logIndex,
		BlockNum:        100,
		BlockTime:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Args: map[string]interface{}{
			"donor":     donorAddr,
			"recipient": recipientAddr,
			"tokenIn":   usdcAddr,
			"tokenOut":  kusdAddr,
			"amountIn":  big.NewInt(1000000),
			"amountOut": big.NewInt(995000),
			"fee":       big.NewInt(5000),
		},
	}
}

func TestHandleDonationEvent(t *testing.T) {
	db := setupTestDB(t)
	seedRegistry(t, db)
	handler := NewHandler(db)

	require.NoError(t, handler.HandleEvent(donationEvent("0xdead01", 3)))

	var donation model.DonationModel
	require.NoError(t, db.First(&donation, "tx_hash = ?", "0xdead01").Error)
	require.Equal(t, model.DonationStatusConfirmed, donation.Status)
	require.Equal(t, "1000000", donation.AmountIn)
	require.Equal(t, donorAddr.Hex(), donation.DonorAddress)

	var items []model.NotificationQueueModel
	require.NoError(t, db.Find(&items).Error)
	require.Len(t, items, 1)
	require.Equal(t, model.NotificationStatusPending, items[0].Status)
}

func TestHandleDonationEventRedelivery(t *testing.T) {
	db := setupTestDB(t)
	seedRegistry(t, db)
	handler := NewHandler(db)

	require.NoError(t, handler.HandleEvent(donationEvent("0xdead01", 3)))
	require.NoError(t, handler.HandleEvent(donationEvent("0xdead01", 3)))

	var donationCount, itemCount int64
	require.NoError(t, db.Model(&model.DonationModel{}).Count(&donationCount).Error)
	require.NoError(t, db.Model(&model.NotificationQueueModel{}).Count(&itemCount).Error)
	require.EqualValues(t, 1, donationCount)
	require.EqualValues(t, 1, itemCount)
}

func TestHandleDonationUnknownRecipientDropped(t *testing.T) {
	db := setupTestDB(t)
	seedRegistry(t, db)
	handler := NewHandler(db)

	evt := donationEvent("0xdead01", 3)
	evt.Args["recipient"] = common.HexToAddress("0xFFF0000000000000000000000000000000000099")

	require.Error(t, handler.HandleEvent(evt))

	var donationCount int64
	require.NoError(t, db.Model(&model.DonationModel{}).Count(&donationCount).Error)
	require.EqualValues(t, 0, donationCount)
}

func TestHandleBridgePair(t *testing.T) {
	db := setupTestDB(t)
	seedRegistry(t, db)
	handler := NewHandler(db)

	messageId := common.HexToHash("0x1234")

	send := &ChainEvent{
		ChainId:         1,
		ContractName:    "donation_router",
		ContractAddress: "0xDDD0000000000000000000000000000000000001",
		EventName:       chain.EventDonationBridgeSent,
		TxHash:          "0xsend01",
		LogIndex:        1,
		BlockNum:        100,
		BlockTime:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Args: map[string]interface{}{
			"messageId":  messageId,
			"donor":      donorAddr,
			"recipient":  recipientAddr,
			"dstChainId": big.NewInt(137),
			"tokenIn":    usdcAddr,
			"tokenOut":   kusdAddr,
			"amountIn":   big.NewInt(1000000),
			"amountOut":  big.NewInt(995000),
			"fee":        big.NewInt(5000),
		},
	}
	require.NoError(t, handler.HandleEvent(send))

	// 发起后资金未到账，不应有通知
	var itemCount int64
	require.NoError(t, db.Model(&model.NotificationQueueModel{}).Count(&itemCount).Error)
	require.EqualValues(t, 0, itemCount)

	receiveTime := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	receive := &ChainEvent{
		ChainId:         137,
		ContractName:    "donation_router",
		ContractAddress: "0xDDD0000000000000000000000000000000000002",
		EventName:       chain.EventDonationBridgeReceived,
		TxHash:          "0xrecv01",
		LogIndex:        0,
		BlockNum:        55,
		BlockTime:       receiveTime,
		Args: map[string]interface{}{
			"messageId": messageId,
			"recipient": recipientAddr,
			"tokenOut":  kusdAddr,
			"amountOut": big.NewInt(995000),
		},
	}
	require.NoError(t, handler.HandleEvent(receive))

	var origin model.DonationModel
	require.NoError(t, db.First(&origin, "tx_hash = ?", "0xsend01").Error)
	require.Equal(t, model.DonationStatusConfirmed, origin.Status)

	var dest model.DonationModel
	require.NoError(t, db.First(&dest, "tx_hash = ?", "0xrecv01").Error)
	require.Equal(t, origin.Id, dest.ParentDonationId)
	require.Equal(t, messageId.Hex(), dest.BridgeMessageId)

	var items []model.NotificationQueueModel
	require.NoError(t, db.Find(&items).Error)
	require.Len(t, items, 1)
	require.Equal(t, receiveTime.Unix(), items[0].EnqueuedAt.Unix())
}

func TestBridgeReceiveBeforeSendReplayed(t *testing.T) {
	db := setupTestDB(t)
	seedRegistry(t, db)
	handler := NewHandler(db)
	eventLogic := logic.NewChainEventLogic(db)

	messageId := common.HexToHash("0x1234")
	receiveTime := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)

	// 目标链到账事件先到，来源链记录还不存在
	receive := &ChainEvent{
		ChainId:         137,
		ContractName:    "donation_router",
		ContractAddress: "0xDDD0000000000000000000000000000000000002",
		EventName:       chain.EventDonationBridgeReceived,
		TxHash:          "0xrecv01",
		LogIndex:        0,
		BlockNum:        700,
		BlockTime:       receiveTime,
		Args: map[string]interface{}{
			"messageId": messageId,
			"recipient": recipientAddr,
			"tokenOut":  kusdAddr,
			"amountOut": big.NewInt(995000),
		},
	}
	require.Error(t, handler.HandleEvent(receive))

	// 游标不能越过等待重放的事件
	lastSeen, err := eventLogic.LastSeenBlock(137)
	require.NoError(t, err)
	require.EqualValues(t, 0, lastSeen)

	send := &ChainEvent{
		ChainId:         1,
		ContractName:    "donation_router",
		ContractAddress: "0xDDD0000000000000000000000000000000000001",
		EventName:       chain.EventDonationBridgeSent,
		TxHash:          "0xsend01",
		LogIndex:        1,
		BlockNum:        100,
		BlockTime:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Args: map[string]interface{}{
			"messageId":  messageId,
			"donor":      donorAddr,
			"recipient":  recipientAddr,
			"dstChainId": big.NewInt(137),
			"tokenIn":    usdcAddr,
			"tokenOut":   kusdAddr,
			"amountIn":   big.NewInt(1000000),
			"amountOut":  big.NewInt(995000),
			"fee":        big.NewInt(5000),
		},
	}
	require.NoError(t, handler.HandleEvent(send))

	// 来源落库后重放到账事件
	pending, err := eventLogic.FetchUnprocessed(time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "0xrecv01", pending[0].TxHash)
	require.NoError(t, handler.Replay(&pending[0]))

	var origin model.DonationModel
	require.NoError(t, db.First(&origin, "tx_hash = ?", "0xsend01").Error)
	require.Equal(t, model.DonationStatusConfirmed, origin.Status)

	var dest model.DonationModel
	require.NoError(t, db.First(&dest, "tx_hash = ?", "0xrecv01").Error)
	require.Equal(t, origin.Id, dest.ParentDonationId)

	var items []model.NotificationQueueModel
	require.NoError(t, db.Find(&items).Error)
	require.Len(t, items, 1)
	require.Equal(t, receiveTime.Unix(), items[0].EnqueuedAt.Unix())

	// 重放完成后游标可以前进，队列里不再有等待的事件
	lastSeen, err = eventLogic.LastSeenBlock(137)
	require.NoError(t, err)
	require.EqualValues(t, 700, lastSeen)

	pending, err = eventLogic.FetchUnprocessed(time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestReplayDropsUnrecoverableEvent(t *testing.T) {
	db := setupTestDB(t)
	seedRegistry(t, db)
	handler := NewHandler(db)
	eventLogic := logic.NewChainEventLogic(db)

	evt := donationEvent("0xdead01", 3)
	evt.Args["recipient"] = common.HexToAddress("0xFFF0000000000000000000000000000000000099")
	require.Error(t, handler.HandleEvent(evt))

	pending, err := eventLogic.FetchUnprocessed(time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// 注册表缺失是数据错误，重放后丢弃而不是无限重试
	require.NoError(t, handler.Replay(&pending[0]))

	pending, err = eventLogic.FetchUnprocessed(time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Empty(t, pending)

	var donationCount int64
	require.NoError(t, db.Model(&model.DonationModel{}).Count(&donationCount).Error)
	require.EqualValues(t, 0, donationCount)
}

func TestHandleUnknownEventIgnored(t *testing.T) {
	db := setupTestDB(t)
	seedRegistry(t, db)
	handler := NewHandler(db)

	evt := donationEvent("0xdead01", 3)
	evt.EventName = "Transfer"

	require.NoError(t, handler.HandleEvent(evt))

	var donationCount int64
	require.NoError(t, db.Model(&model.DonationModel{}).Count(&donationCount).Error)
	require.EqualValues(t, 0, donationCount)
}
