package chain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Kubistream/kubi-main-app-sub000/internal/config"
	"github.com/Kubistream/kubi-main-app-sub000/internal/logger"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Contract 合约工具类
type Contract struct {
	address  common.Address // 合约地址
	abi      abi.ABI        // 合约ABI
	name     string         // 合约名称
	blockNum int64          // 合约部署的区块号
	chainId  int64          // 链ID
}

// NewContract 创建合约实例
func NewContract(name string, contractCfg config.ContractConfig, chainCfg config.ChainConfig) (*Contract, error) {
	parsedABI, err := loadABI(contractCfg.ABIPath)
	if err != nil {
		return nil, err
	}

	return &Contract{
		address:  common.HexToAddress(contractCfg.Address),
		abi:      parsedABI,
		name:     name,
		blockNum: contractCfg.BlockNum,
		chainId:  chainCfg.ChainId,
	}, nil
}

// loadABI 加载ABI，路径为空时使用内置捐赠合约ABI
func loadABI(abiPath string) (abi.ABI, error) {
	if abiPath == "" {
		return abi.JSON(strings.NewReader(donationABI))
	}

	abiData, err := os.ReadFile(abiPath)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to load ABI from %s: %w", abiPath, err)
	}

	// 尝试解析为完整的编译输出文件
	var compiledOutput struct {
		ABI json.RawMessage `json:"abi"`
	}
	if err := json.Unmarshal(abiData, &compiledOutput); err == nil && compiledOutput.ABI != nil {
		parsed, err := abi.JSON(bytes.NewReader(compiledOutput.ABI))
		if err != nil {
			return abi.ABI{}, fmt.Errorf("failed to parse ABI from compiled output: %w", err)
		}
		return parsed, nil
	}

	// 不是完整编译输出，直接解析为ABI数组
	parsed, err := abi.JSON(bytes.NewReader(abiData))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ABI: %w", err)
	}
	return parsed, nil
}

// GetAddress 获取合约地址
func (c *Contract) GetAddress() common.Address {
	return c.address
}

// GetName 获取合约名称
func (c *Contract) GetName() string {
	return c.name
}

// GetBlockNum 获取合约部署区块号
func (c *Contract) GetBlockNum() int64 {
	return c.blockNum
}

// WatchedTopics 返回该合约所有事件的topic签名
func (c *Contract) WatchedTopics() []common.Hash {
	topics := make([]common.Hash, 0, len(c.abi.Events))
	for _, event := range c.abi.Events {
		topics = append(topics, event.ID)
	}
	return topics
}

// ParseEvent 解析事件日志
func (c *Contract) ParseEvent(log types.Log) (map[string]interface{}, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("log without topics in contract %s", c.name)
	}
	eventSignature := log.Topics[0].Hex()

	// 遍历ABI中的事件
	for eventName, event := range c.abi.Events {
		if event.ID.Hex() == eventSignature {
			return c.parseEvent(eventName, log, event)
		}
	}

	return nil, fmt.Errorf("unknown event signature %s in contract %s", eventSignature, c.name)
}

// parseEvent 解析事件
func (c *Contract) parseEvent(eventName string, log types.Log, event abi.Event) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	result["eventName"] = eventName

	// 解析索引参数
	if len(log.Topics) > 1 {
		indexed := 0
		for _, input := range event.Inputs {
			if !input.Indexed {
				continue
			}
			indexed++
			if indexed >= len(log.Topics) {
				break
			}
			value, err := parseTopicValue(log.Topics[indexed], input.Type)
			if err != nil {
				logger.Warn("Failed to parse indexed parameter %s: %v", input.Name, err)
				continue
			}
			result[input.Name] = value
		}
	}

	// 解析非索引参数
	if len(log.Data) > 0 {
		nonIndexedInputs := make([]abi.Argument, 0)
		for _, input := range event.Inputs {
			if !input.Indexed {
				nonIndexedInputs = append(nonIndexedInputs, input)
			}
		}

		if len(nonIndexedInputs) > 0 {
			values, err := c.abi.Unpack(eventName, log.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to unpack event %s data: %w", eventName, err)
			}
			for i, input := range nonIndexedInputs {
				if i < len(values) {
					result[input.Name] = values[i]
				}
			}
		}
	}

	return result, nil
}

// parseTopicValue 按参数类型解析topic值
func parseTopicValue(topic common.Hash, argType abi.Type) (interface{}, error) {
	switch argType.T {
	case abi.AddressTy:
		return common.BytesToAddress(topic.Bytes()), nil
	case abi.FixedBytesTy, abi.BytesTy:
		return topic, nil
	case abi.UintTy, abi.IntTy:
		return topic.Big(), nil
	case abi.BoolTy:
		return topic.Big().Sign() != 0, nil
	default:
		return topic, nil
	}
}
