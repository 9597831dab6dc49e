package config

import (
	"fmt"

	"github.com/Kubistream/kubi-main-app-sub000/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig           `mapstructure:"server"`
	Database DatabaseConfig         `mapstructure:"database"`
	Chains   map[string]ChainConfig `mapstructure:"chains"`
	Notify   NotifyConfig           `mapstructure:"notify"`
	Rebase   RebaseConfig           `mapstructure:"rebase"`
	Log      LogConfig              `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ChainConfig 单链配置
type ChainConfig struct {
	ChainId      int64                     `mapstructure:"chain_id"`      // 链ID
	RpcUrl       string                    `mapstructure:"rpc_url"`       // HTTP RPC节点URL
	WsUrl        string                    `mapstructure:"ws_url"`        // WebSocket节点URL（可选，为空时降级为轮询）
	PrivateKey   string                    `mapstructure:"private_key"`   // 私钥（rebase交易签名用）
	StartBlock   int64                     `mapstructure:"start_block"`   // 起始区块号
	ReplayBlocks int64                     `mapstructure:"replay_blocks"` // 重连后回放的区块数
	PollInterval int                       `mapstructure:"poll_interval"` // 轮询间隔（秒）
	CallTimeout  int                       `mapstructure:"call_timeout"`  // RPC调用超时（秒）
	GasLimit     uint64                    `mapstructure:"gas_limit"`     // Gas上限
	GasPriceGwei int64                     `mapstructure:"gas_price"`     // Gas价格（Gwei，0为自动）
	Contracts    map[string]ContractConfig `mapstructure:"contracts"`     // 该链上的合约配置
}

// ContractConfig 单个合约配置
type ContractConfig struct {
	Address  string `mapstructure:"address"`   // 合约地址
	ABIPath  string `mapstructure:"abi_path"`  // ABI文件路径（为空时使用内置捐赠合约ABI）
	Enabled  bool   `mapstructure:"enabled"`   // 是否启用此合约
	BlockNum int64  `mapstructure:"block_num"` // 合约部署区块号
}

// NotifyConfig 通知队列配置
type NotifyConfig struct {
	Interval  int `mapstructure:"interval"`   // 轮询间隔（秒）
	BatchSize int `mapstructure:"batch_size"` // 每次处理的条数
}

// RebaseConfig 利率rebase配置
type RebaseConfig struct {
	Enabled    bool   `mapstructure:"enabled"`      // 是否启用rebase任务
	Cron       string `mapstructure:"cron"`         // cron表达式
	RunsPerDay int    `mapstructure:"runs_per_day"` // 每天执行次数（用于折算单次增长率）
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/kubistream")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "kubistream")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("notify.interval", 1)
	viper.SetDefault("notify.batch_size", 10)
	viper.SetDefault("rebase.enabled", false)
	viper.SetDefault("rebase.cron", "*/30 * * * *")
	viper.SetDefault("rebase.runs_per_day", 48)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	applyChainDefaults(&config)

	return &config
}

// applyChainDefaults 补全每条链的默认值
func applyChainDefaults(cfg *Config) {
	for name, chain := range cfg.Chains {
		if chain.PollInterval <= 0 {
			chain.PollInterval = 15
		}
		if chain.CallTimeout <= 0 {
			chain.CallTimeout = 15
		}
		if chain.GasLimit == 0 {
			chain.GasLimit = 300000
		}
		cfg.Chains[name] = chain
	}
}

// Validate 校验启动必需的配置项
func (c *Config) Validate() error {
	if len(c.Chains) == 0 {
		return fmt.Errorf("no chains configured")
	}
	for name, chain := range c.Chains {
		if chain.RpcUrl == "" {
			return fmt.Errorf("chain %s: rpc_url is required", name)
		}
		if chain.ChainId == 0 {
			return fmt.Errorf("chain %s: chain_id is required", name)
		}
		// rebase需要签名私钥，缺失时直接拒绝启动
		if c.Rebase.Enabled && chain.PrivateKey == "" {
			return fmt.Errorf("chain %s: private_key is required when rebase is enabled", name)
		}
	}
	if c.Notify.Interval <= 0 {
		return fmt.Errorf("notify.interval must be positive")
	}
	if c.Notify.BatchSize <= 0 {
		return fmt.Errorf("notify.batch_size must be positive")
	}
	if c.Rebase.Enabled && c.Rebase.RunsPerDay <= 0 {
		return fmt.Errorf("rebase.runs_per_day must be positive")
	}
	return nil
}
