package task

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Kubistream/kubi-main-app-sub000/internal/config"
	"github.com/Kubistream/kubi-main-app-sub000/internal/model"
	"github.com/Kubistream/kubi-main-app-sub000/internal/ws"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeBroadcaster 记录投递调用，可按接收者注入失败
type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []broadcastCall
	failFor  map[int64]error
}

type broadcastCall struct {
	recipientId int64
	msgType     string
	payload     interface{}
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{failFor: make(map[int64]error)}
}

func (b *fakeBroadcaster) Broadcast(recipientId int64, msgType string, payload interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failFor[recipientId]; err != nil {
		return err
	}
	b.messages = append(b.messages, broadcastCall{recipientId: recipientId, msgType: msgType, payload: payload})
	return nil
}

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

func notifyConfig() config.NotifyConfig {
	return config.NotifyConfig{Interval: 1, BatchSize: 10}
}

// seedNotification 建齐通知及其关联的捐赠、接收者和代币记录
func seedNotification(t *testing.T, db *gorm.DB, recipient *model.RecipientModel, token *model.TokenModel, seq int) *model.NotificationQueueModel {
	t.Helper()
	txHash := fmt.Sprintf("0xtx%02d", seq)
	donation := &model.DonationModel{
		RecipientId:  recipient.Id,
		DonorAddress: "0xAAA0000000000000000000000000000000000001",
		TokenInId:    token.Id,
		TokenOutId:   token.Id,
		AmountIn:     "1000000",
		AmountOut:    "995000",
		TxHash:       txHash,
		LogIndex:     0,
		BlockNum:     int64(100 + seq),
		ChainId:      1,
		BlockTime:    time.Now(),
		Status:       model.DonationStatusConfirmed,
	}
	require.NoError(t, db.Create(donation).Error)

	item := &model.NotificationQueueModel{
		RecipientId: recipient.Id,
		TxHash:      txHash,
		TokenId:     token.Id,
		Amount:      "995000",
		EnqueuedAt:  time.Now().Add(time.Duration(seq) * time.Millisecond),
		Status:      model.NotificationStatusPending,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func seedNotifyRegistry(t *testing.T, db *gorm.DB) (*model.RecipientModel, *model.TokenModel) {
	t.Helper()
	recipient := &model.RecipientModel{
		WalletAddress: "0xBBB0000000000000000000000000000000000001",
		DisplayName:   "streamer-one",
		Active:        true,
	}
	require.NoError(t, db.Create(recipient).Error)
	token := &model.TokenModel{ChainId: 1, Address: "0xCCC01", Symbol: "kUSD", Decimals: 6, Active: true}
	require.NoError(t, db.Create(token).Error)
	return recipient, token
}

func TestNotifyDeliversBatch(t *testing.T) {
	db := setupTestDB(t)
	recipient, token := seedNotifyRegistry(t, db)
	hub := newFakeBroadcaster()

	job, err := NewNotifyJob(db, hub, notifyConfig())
	require.NoError(t, err)
	defer job.Release()

	for i := 0; i < 5; i++ {
		seedNotification(t, db, recipient, token, i)
	}

	job.Execute()

	require.Equal(t, 5, hub.count())
	for _, call := range hub.messages {
		require.Equal(t, recipient.Id, call.recipientId)
		require.Equal(t, ws.MessageTypeDonation, call.msgType)
		alert, ok := call.payload.(*ws.DonationAlert)
		require.True(t, ok)
		require.Equal(t, "streamer-one", alert.RecipientName)
		require.Equal(t, "kUSD", alert.TokenSymbol)
	}

	var pending int64
	require.NoError(t, db.Model(&model.NotificationQueueModel{}).
		Where("status = ?", model.NotificationStatusPending).Count(&pending).Error)
	require.EqualValues(t, 0, pending)

	var displayed int64
	require.NoError(t, db.Model(&model.NotificationQueueModel{}).
		Where("status = ?", model.NotificationStatusDisplayed).Count(&displayed).Error)
	require.EqualValues(t, 5, displayed)
}

func TestNotifyEnrichFailureMarksOnProcess(t *testing.T) {
	db := setupTestDB(t)
	recipient, token := seedNotifyRegistry(t, db)
	hub := newFakeBroadcaster()

	job, err := NewNotifyJob(db, hub, notifyConfig())
	require.NoError(t, err)
	defer job.Release()

	for i := 0; i < 4; i++ {
		seedNotification(t, db, recipient, token, i)
	}
	// 代币被后台下线后的遗留通知，补全信息时查不到
	broken := seedNotification(t, db, recipient, token, 99)
	require.NoError(t, db.Model(broken).Update("token_id", 9999).Error)

	job.Execute()

	require.Equal(t, 4, hub.count())

	var got model.NotificationQueueModel
	require.NoError(t, db.First(&got, broken.Id).Error)
	require.Equal(t, model.NotificationStatusOnProcess, got.Status)
}

func TestNotifyBroadcastFailureKeepsItemRetryable(t *testing.T) {
	db := setupTestDB(t)
	recipient, token := seedNotifyRegistry(t, db)
	hub := newFakeBroadcaster()
	hub.failFor[recipient.Id] = fmt.Errorf("connection reset")

	job, err := NewNotifyJob(db, hub, notifyConfig())
	require.NoError(t, err)
	defer job.Release()

	item := seedNotification(t, db, recipient, token, 0)

	job.Execute()

	var got model.NotificationQueueModel
	require.NoError(t, db.First(&got, item.Id).Error)
	require.Equal(t, model.NotificationStatusOnProcess, got.Status)

	// 解除故障并重投后可成功
	hub.mu.Lock()
	delete(hub.failFor, recipient.Id)
	hub.mu.Unlock()
	require.NoError(t, job.notifyLogic.Retry(item.Id))

	job.Execute()

	require.NoError(t, db.First(&got, item.Id).Error)
	require.Equal(t, model.NotificationStatusDisplayed, got.Status)
}

func TestNotifyEmptyQueueNoop(t *testing.T) {
	db := setupTestDB(t)
	hub := newFakeBroadcaster()

	job, err := NewNotifyJob(db, hub, notifyConfig())
	require.NoError(t, err)
	defer job.Release()

	job.Execute()
	require.Equal(t, 0, hub.count())
}
