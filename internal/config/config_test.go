package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Chains: map[string]ChainConfig{
			"ethereum": {
				ChainId: 1,
				RpcUrl:  "https://eth.example.com",
			},
		},
		Notify: NotifyConfig{Interval: 1, BatchSize: 10},
		Rebase: RebaseConfig{Enabled: false, Cron: "*/30 * * * *", RunsPerDay: 48},
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRequiresChains(t *testing.T) {
	cfg := validConfig()
	cfg.Chains = nil
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresRpcUrl(t *testing.T) {
	cfg := validConfig()
	chain := cfg.Chains["ethereum"]
	chain.RpcUrl = ""
	cfg.Chains["ethereum"] = chain

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "rpc_url")
}

func TestValidateRequiresChainId(t *testing.T) {
	cfg := validConfig()
	chain := cfg.Chains["ethereum"]
	chain.ChainId = 0
	cfg.Chains["ethereum"] = chain

	require.Error(t, cfg.Validate())
}

func TestValidateRebaseNeedsPrivateKey(t *testing.T) {
	cfg := validConfig()
	cfg.Rebase.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "private_key")

	chain := cfg.Chains["ethereum"]
	chain.PrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	cfg.Chains["ethereum"] = chain
	require.NoError(t, cfg.Validate())
}

func TestValidateNotifySettings(t *testing.T) {
	cfg := validConfig()
	cfg.Notify.Interval = 0
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Notify.BatchSize = 0
	require.Error(t, cfg.Validate())
}

func TestApplyChainDefaults(t *testing.T) {
	cfg := validConfig()
	applyChainDefaults(cfg)

	chain := cfg.Chains["ethereum"]
	require.Equal(t, 15, chain.PollInterval)
	require.Equal(t, 15, chain.CallTimeout)
	require.EqualValues(t, 300000, chain.GasLimit)
}

func TestApplyChainDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := validConfig()
	chain := cfg.Chains["ethereum"]
	chain.PollInterval = 5
	chain.GasLimit = 500000
	cfg.Chains["ethereum"] = chain

	applyChainDefaults(cfg)

	chain = cfg.Chains["ethereum"]
	require.Equal(t, 5, chain.PollInterval)
	require.EqualValues(t, 500000, chain.GasLimit)
}
