package watcher

import (
	"time"
)

// ChainEvent 归一化后的链上事件，只在watcher与处理器之间传递，不落库
type ChainEvent struct {
	ChainId         int64
	ContractName    string
	ContractAddress string
	EventName       string
	TxHash          string
	LogIndex        int64
	BlockNum        int64
	BlockTime       time.Time
	Args            map[string]interface{}
}
