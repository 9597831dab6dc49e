package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/Kubistream/kubi-main-app-sub000/internal/config"
	"github.com/Kubistream/kubi-main-app-sub000/internal/logger"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Manager 单链管理器
type Manager struct {
	mu        sync.RWMutex
	name      string               // 链名称（配置键）
	contracts map[string]*Contract // 合约映射: "contractName" -> Contract
	client    *ethclient.Client    // HTTP客户端
	wsClient  *ethclient.Client    // WebSocket客户端，未配置时为nil
	privKey   *ecdsa.PrivateKey    // 签名私钥，未配置时为nil
	config    config.ChainConfig   // 链配置
}

// NewManager 创建单链管理器
func NewManager(name string, cfg config.ChainConfig) (*Manager, error) {
	manager := &Manager{
		name:      name,
		contracts: make(map[string]*Contract),
		config:    cfg,
	}

	if err := manager.initClients(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := manager.initContracts(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize contracts: %w", err)
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		manager.privKey = key
	}

	return manager, nil
}

// initClients 初始化客户端连接
func (m *Manager) initClients(cfg config.ChainConfig) error {
	logger.Info("Initializing chain client %s (id: %d)", m.name, cfg.ChainId)

	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return fmt.Errorf("failed to dial rpc %s: %w", cfg.RpcUrl, err)
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), m.CallTimeout())
	defer cancel()
	if _, err := client.BlockNumber(ctx); err != nil {
		client.Close()
		return fmt.Errorf("client connection test failed: %w", err)
	}
	m.client = client

	// WebSocket端点可选，订阅失败时watcher会降级为轮询
	if cfg.WsUrl != "" {
		wsClient, err := ethclient.Dial(cfg.WsUrl)
		if err != nil {
			logger.Warn("Failed to dial ws endpoint %s, falling back to polling: %v", cfg.WsUrl, err)
		} else {
			m.wsClient = wsClient
		}
	}

	logger.Info("Successfully initialized client for chain %s", m.name)
	return nil
}

// initContracts 初始化所有启用的合约
func (m *Manager) initContracts(cfg config.ChainConfig) error {
	for contractName, contractCfg := range cfg.Contracts {
		if !contractCfg.Enabled {
			logger.Info("Skipping disabled contract: %s", contractName)
			continue
		}

		contract, err := NewContract(contractName, contractCfg, cfg)
		if err != nil {
			return fmt.Errorf("failed to create contract %s: %w", contractName, err)
		}

		m.contracts[contractName] = contract
		logger.Info("Initialized contract %s (address: %s)", contractName, contractCfg.Address)
	}

	logger.Info("Initialized %d contracts on chain %s", len(m.contracts), m.name)
	return nil
}

// Name 链名称
func (m *Manager) Name() string {
	return m.name
}

// ChainId 链ID
func (m *Manager) ChainId() int64 {
	return m.config.ChainId
}

// Config 链配置
func (m *Manager) Config() config.ChainConfig {
	return m.config
}

// CallTimeout RPC调用超时
func (m *Manager) CallTimeout() time.Duration {
	timeout := m.config.CallTimeout
	if timeout <= 0 {
		timeout = 15
	}
	return time.Duration(timeout) * time.Second
}

// GetClient 获取HTTP客户端
func (m *Manager) GetClient() *ethclient.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// GetWsClient 获取WebSocket客户端，未配置时返回nil
func (m *Manager) GetWsClient() *ethclient.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.wsClient
}

// GetContract 获取指定合约
func (m *Manager) GetContract(contractName string) (*Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	contract, exists := m.contracts[contractName]
	if !exists {
		return nil, fmt.Errorf("contract %s not found", contractName)
	}
	return contract, nil
}

// GetContracts 获取所有合约
func (m *Manager) GetContracts() map[string]*Contract {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// 返回副本以避免并发修改
	contracts := make(map[string]*Contract, len(m.contracts))
	for name, contract := range m.contracts {
		contracts[name] = contract
	}
	return contracts
}

// Auth 构造交易签名器，gas参数取自链配置
func (m *Manager) Auth(ctx context.Context) (*bind.TransactOpts, error) {
	if m.privKey == nil {
		return nil, fmt.Errorf("no private key configured for chain %s", m.name)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(m.privKey, big.NewInt(m.config.ChainId))
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx
	auth.GasLimit = m.config.GasLimit
	if m.config.GasPriceGwei > 0 {
		auth.GasPrice = new(big.Int).Mul(big.NewInt(m.config.GasPriceGwei), big.NewInt(1e9))
	}
	return auth, nil
}

// Close 关闭客户端连接
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		m.client.Close()
	}
	if m.wsClient != nil {
		m.wsClient.Close()
	}
}
