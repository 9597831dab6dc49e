package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Gateway 收益代币合约的读写入口，按链ID路由到对应的Manager
type Gateway struct {
	managers map[int64]*Manager
	tokenABI abi.ABI
}

// NewGateway 创建收益代币网关
func NewGateway(managers map[string]*Manager) (*Gateway, error) {
	parsedABI, err := abi.JSON(strings.NewReader(yieldTokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse yield token ABI: %w", err)
	}

	byChainId := make(map[int64]*Manager, len(managers))
	for _, m := range managers {
		byChainId[m.ChainId()] = m
	}

	return &Gateway{
		managers: byChainId,
		tokenABI: parsedABI,
	}, nil
}

// manager 按链ID取Manager
func (g *Gateway) manager(chainId int64) (*Manager, error) {
	m, ok := g.managers[chainId]
	if !ok {
		return nil, fmt.Errorf("no manager for chain %d", chainId)
	}
	return m, nil
}

// ReadScalingFactor 读取代币当前的缩放因子
func (g *Gateway) ReadScalingFactor(ctx context.Context, chainId int64, tokenAddress string) (*big.Int, error) {
	m, err := g.manager(chainId)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, m.CallTimeout())
	defer cancel()

	client := m.GetClient()
	addr := common.HexToAddress(tokenAddress)
	bound := bind.NewBoundContract(addr, g.tokenABI, client, client, client)

	var out []interface{}
	if err := bound.Call(&bind.CallOpts{Context: callCtx}, &out, "scalingFactor"); err != nil {
		return nil, fmt.Errorf("scalingFactor call failed for %s: %w", tokenAddress, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("scalingFactor call returned no value for %s", tokenAddress)
	}

	factor, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected scalingFactor return type %T", out[0])
	}
	return factor, nil
}

// SubmitScalingFactor 发送设置缩放因子的签名交易，返回交易哈希
func (g *Gateway) SubmitScalingFactor(ctx context.Context, chainId int64, tokenAddress string, newFactor *big.Int) (string, error) {
	m, err := g.manager(chainId)
	if err != nil {
		return "", err
	}

	txCtx, cancel := context.WithTimeout(ctx, m.CallTimeout())
	defer cancel()

	auth, err := m.Auth(txCtx)
	if err != nil {
		return "", err
	}

	client := m.GetClient()
	addr := common.HexToAddress(tokenAddress)
	bound := bind.NewBoundContract(addr, g.tokenABI, client, client, client)

	tx, err := bound.Transact(auth, "setScalingFactor", newFactor)
	if err != nil {
		return "", fmt.Errorf("setScalingFactor tx failed for %s: %w", tokenAddress, err)
	}
	return tx.Hash().Hex(), nil
}
