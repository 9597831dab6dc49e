package watcher

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// 事件参数提取辅助函数。实时路径拿到的是解析层的原生类型，
// 重放路径拿到的是审计记录JSON解码后的字符串和json.Number，
// 两种形式都归一化处理。缺失或类型不符一律视为不可恢复的数据错误。

func argAddress(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing event argument %s", key)
	}
	switch a := v.(type) {
	case common.Address:
		return a.Hex(), nil
	case string:
		if !common.IsHexAddress(a) {
			return "", fmt.Errorf("event argument %s is not a valid address (%s)", key, a)
		}
		return common.HexToAddress(a).Hex(), nil
	default:
		return "", fmt.Errorf("event argument %s is not an address (%T)", key, v)
	}
}

func argBigInt(args map[string]interface{}, key string) (*big.Int, error) {
	v, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("missing event argument %s", key)
	}
	switch n := v.(type) {
	case *big.Int:
		return n, nil
	case json.Number:
		parsed, ok := new(big.Int).SetString(n.String(), 10)
		if !ok {
			return nil, fmt.Errorf("event argument %s is not a valid integer (%s)", key, n)
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("event argument %s is not an integer (%T)", key, v)
	}
}

func argHash(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing event argument %s", key)
	}
	switch h := v.(type) {
	case common.Hash:
		return h.Hex(), nil
	case string:
		return common.HexToHash(h).Hex(), nil
	default:
		return "", fmt.Errorf("event argument %s is not a hash (%T)", key, v)
	}
}
