package watcher

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/Kubistream/kubi-main-app-sub000/internal/chain"
	"github.com/Kubistream/kubi-main-app-sub000/internal/config"
	"github.com/Kubistream/kubi-main-app-sub000/internal/logger"
	"github.com/Kubistream/kubi-main-app-sub000/internal/logic"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"gorm.io/gorm"
)

const (
	batchBlocks    = int64(500)      // 补扫时单次FilterLogs的区块跨度
	maxBackoff     = 5 * time.Minute // 订阅重连的最大退避时间
	initialBackoff = 5 * time.Second // 订阅重连的初始退避时间
)

// rpcBackend 补扫所需的RPC能力，由ethclient.Client实现
type rpcBackend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// logSubscriber 日志订阅能力，由WebSocket端点的ethclient.Client实现
type logSubscriber interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// Watcher 单链事件监控器。优先使用WebSocket订阅，订阅不可用时降级为轮询，
// 断线后从游标位置补扫，事件至少投递一次，重复由下游去重。
type Watcher struct {
	name      string
	chainId   int64
	cfg       config.ChainConfig
	contracts map[string]*chain.Contract

	client   rpcBackend
	wsClient logSubscriber // 未配置时为nil

	handler    *Handler
	eventLogic *logic.ChainEventLogic

	cursor int64        // 已处理到的区块号
	mode   string       // 当前模式: subscribe / poll
	mu     sync.RWMutex // 保护 cursor 与 mode

	blockTimes map[uint64]time.Time // 区块时间缓存

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher 创建单链监控器
func NewWatcher(manager *chain.Manager, db *gorm.DB) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())

	w := &Watcher{
		name:       manager.Name(),
		chainId:    manager.ChainId(),
		cfg:        manager.Config(),
		contracts:  manager.GetContracts(),
		client:     manager.GetClient(),
		handler:    NewHandler(db),
		eventLogic: logic.NewChainEventLogic(db),
		blockTimes: make(map[uint64]time.Time),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	if ws := manager.GetWsClient(); ws != nil {
		w.wsClient = ws
	}
	return w
}

// Start 启动监控
func (w *Watcher) Start() error {
	if len(w.contracts) == 0 {
		return fmt.Errorf("no contracts configured for chain %s", w.name)
	}

	cursor, err := w.loadCursor()
	if err != nil {
		return fmt.Errorf("failed to determine start block: %w", err)
	}
	w.setCursor(cursor)

	logger.Info("Starting watcher for chain %s from block %d", w.name, cursor)
	go w.run()
	return nil
}

// Stop 停止监控，等待当前事件处理完成
func (w *Watcher) Stop() {
	w.cancel()
	<-w.done
	logger.Info("Watcher for chain %s stopped", w.name)
}

// Status 监控状态，供状态接口展示
func (w *Watcher) Status() map[string]interface{} {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return map[string]interface{}{
		"chain":    w.name,
		"chain_id": w.chainId,
		"cursor":   w.cursor,
		"mode":     w.mode,
	}
}

// loadCursor 计算起始区块：取数据库游标与配置起始区块中的较大者
func (w *Watcher) loadCursor() (int64, error) {
	lastSeen, err := w.eventLogic.LastSeenBlock(w.chainId)
	if err != nil {
		return 0, err
	}

	start := w.cfg.StartBlock
	if start == 0 {
		// 未配置起始区块时取所有合约的最早部署区块
		for _, contract := range w.contracts {
			if start == 0 || contract.GetBlockNum() < start {
				start = contract.GetBlockNum()
			}
		}
	}

	if lastSeen > start {
		return lastSeen, nil
	}
	return start, nil
}

// run 监控主循环
func (w *Watcher) run() {
	defer close(w.done)

	if w.wsClient != nil {
		w.setMode("subscribe")
		w.subscribeLoop()
		return
	}

	w.setMode("poll")
	w.pollLoop()
}

// subscribeLoop 订阅模式。先建立订阅再补扫缺口，补扫读头与订阅生效之间
// 的日志会进入订阅缓冲，两侧重叠的部分由(tx_hash, log_index)去重吸收。
func (w *Watcher) subscribeLoop() {
	backoff := initialBackoff

	for {
		if w.ctx.Err() != nil {
			return
		}

		query := ethereum.FilterQuery{
			Addresses: w.watchedAddresses(),
			Topics:    [][]common.Hash{w.watchedTopics()},
		}
		logsCh := make(chan types.Log, 256)

		sub, err := w.wsClient.SubscribeFilterLogs(w.ctx, query, logsCh)
		if err != nil {
			logger.Error("Subscription failed on chain %s: %v", w.name, err)
			if !w.sleep(backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}
		logger.Info("Subscribed to logs on chain %s", w.name)

		if err := w.catchUp(); err != nil {
			logger.Error("Catch-up failed on chain %s: %v", w.name, err)
			sub.Unsubscribe()
			if !w.sleep(backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = initialBackoff

		if !w.consume(sub, logsCh) {
			return
		}

		// 订阅断开：按配置回退游标，补扫断线窗口
		w.rewind(w.cfg.ReplayBlocks)
	}
}

// consume 消费订阅日志，返回false表示收到停止信号
func (w *Watcher) consume(sub ethereum.Subscription, logsCh chan types.Log) bool {
	defer sub.Unsubscribe()

	for {
		select {
		case <-w.ctx.Done():
			return false
		case err := <-sub.Err():
			logger.Warn("Subscription lost on chain %s: %v", w.name, err)
			return true
		case lg := <-logsCh:
			w.handleLog(lg)
			if int64(lg.BlockNumber) > w.getCursor() {
				w.setCursor(int64(lg.BlockNumber))
			}
		}
	}
}

// pollLoop 轮询模式：定时补扫新区块
func (w *Watcher) pollLoop() {
	interval := time.Duration(w.cfg.PollInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if err := w.catchUp(); err != nil {
				logger.Error("Polling failed on chain %s: %v", w.name, err)
			}
		}
	}
}

// catchUp 从游标补扫到链头，分批拉取日志按序处理
func (w *Watcher) catchUp() error {
	head, err := w.currentBlock()
	if err != nil {
		return fmt.Errorf("failed to get current block: %w", err)
	}

	from := w.getCursor() + 1
	if from > head {
		return nil
	}

	addresses := w.watchedAddresses()
	topics := [][]common.Hash{w.watchedTopics()}
	for batchFrom := from; batchFrom <= head; batchFrom += batchBlocks {
		if w.ctx.Err() != nil {
			return nil
		}

		batchTo := batchFrom + batchBlocks - 1
		if batchTo > head {
			batchTo = head
		}

		logs, err := w.filterLogs(addresses, topics, batchFrom, batchTo)
		if err != nil {
			return fmt.Errorf("failed to fetch logs %d-%d: %w", batchFrom, batchTo, err)
		}

		// 严格按投递顺序处理，保持单链内的日志顺序
		for _, lg := range logs {
			w.handleLog(lg)
		}

		w.setCursor(batchTo)
	}
	return nil
}

// handleLog 解析并处理单条日志，失败只记录日志不中断
func (w *Watcher) handleLog(lg types.Log) {
	if lg.Removed {
		logger.Warn("Skipping removed log %s/%d on chain %s", lg.TxHash.Hex(), lg.Index, w.name)
		return
	}

	contract := w.contractByAddress(lg.Address)
	if contract == nil {
		logger.Debug("Log from unwatched contract %s", lg.Address.Hex())
		return
	}

	parsed, err := contract.ParseEvent(lg)
	if err != nil {
		logger.Warn("Failed to parse log %s/%d: %v", lg.TxHash.Hex(), lg.Index, err)
		return
	}

	eventName, _ := parsed["eventName"].(string)
	delete(parsed, "eventName")

	evt := &ChainEvent{
		ChainId:         w.chainId,
		ContractName:    contract.GetName(),
		ContractAddress: contract.GetAddress().Hex(),
		EventName:       eventName,
		TxHash:          lg.TxHash.Hex(),
		LogIndex:        int64(lg.Index),
		BlockNum:        int64(lg.BlockNumber),
		BlockTime:       w.blockTime(lg.BlockNumber),
		Args:            parsed,
	}

	if err := w.handler.HandleEvent(evt); err != nil {
		logger.Error("Failed to handle event %s/%d on chain %s: %v",
			evt.TxHash, evt.LogIndex, w.name, err)
	}
}

// blockTime 查询区块时间戳，带缓存；查询失败时返回当前时间
func (w *Watcher) blockTime(blockNum uint64) time.Time {
	w.mu.RLock()
	cached, ok := w.blockTimes[blockNum]
	w.mu.RUnlock()
	if ok {
		return cached
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.callTimeout())
	defer cancel()

	header, err := w.client.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNum))
	if err != nil {
		logger.Warn("Failed to get header for block %d: %v", blockNum, err)
		return time.Now()
	}

	t := time.Unix(int64(header.Time), 0)
	w.mu.Lock()
	if len(w.blockTimes) > 1024 {
		w.blockTimes = make(map[uint64]time.Time)
	}
	w.blockTimes[blockNum] = t
	w.mu.Unlock()
	return t
}

// currentBlock 获取当前最新区块号
func (w *Watcher) currentBlock() (int64, error) {
	ctx, cancel := context.WithTimeout(w.ctx, w.callTimeout())
	defer cancel()

	head, err := w.client.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	return int64(head), nil
}

// filterLogs 拉取区块范围内被监控合约的日志
func (w *Watcher) filterLogs(addresses []common.Address, topics [][]common.Hash, from, to int64) ([]types.Log, error) {
	ctx, cancel := context.WithTimeout(w.ctx, w.callTimeout())
	defer cancel()

	query := ethereum.FilterQuery{
		FromBlock: big.NewInt(from),
		ToBlock:   big.NewInt(to),
		Addresses: addresses,
		Topics:    topics,
	}
	return w.client.FilterLogs(ctx, query)
}

// watchedAddresses 所有被监控合约的地址
func (w *Watcher) watchedAddresses() []common.Address {
	addresses := make([]common.Address, 0, len(w.contracts))
	for _, contract := range w.contracts {
		addresses = append(addresses, contract.GetAddress())
	}
	return addresses
}

// watchedTopics 所有被监控合约事件的topic签名并集
func (w *Watcher) watchedTopics() []common.Hash {
	seen := make(map[common.Hash]bool)
	topics := make([]common.Hash, 0)
	for _, contract := range w.contracts {
		for _, topic := range contract.WatchedTopics() {
			if seen[topic] {
				continue
			}
			seen[topic] = true
			topics = append(topics, topic)
		}
	}
	return topics
}

// contractByAddress 按地址查找被监控的合约
func (w *Watcher) contractByAddress(address common.Address) *chain.Contract {
	for _, contract := range w.contracts {
		if contract.GetAddress() == address {
			return contract
		}
	}
	return nil
}

// rewind 回退游标，用于断线后回放
func (w *Watcher) rewind(blocks int64) {
	if blocks <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cursor -= blocks
	if w.cursor < 0 {
		w.cursor = 0
	}
	logger.Info("Rewound cursor on chain %s to %d for replay", w.name, w.cursor)
}

// callTimeout RPC调用超时
func (w *Watcher) callTimeout() time.Duration {
	timeout := w.cfg.CallTimeout
	if timeout <= 0 {
		timeout = 15
	}
	return time.Duration(timeout) * time.Second
}

func (w *Watcher) getCursor() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cursor
}

func (w *Watcher) setCursor(cursor int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cursor = cursor
}

func (w *Watcher) setMode(mode string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mode = mode
}

// sleep 可被停止信号打断的等待，返回false表示应当退出
func (w *Watcher) sleep(d time.Duration) bool {
	select {
	case <-w.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// nextBackoff 指数退避
func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
