package chain

// 捐赠路由合约ABI（事件部分）。合约配置未指定abi_path时使用。
const donationABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "donor", "type": "address"},
			{"indexed": true, "name": "recipient", "type": "address"},
			{"indexed": false, "name": "tokenIn", "type": "address"},
			{"indexed": false, "name": "tokenOut", "type": "address"},
			{"indexed": false, "name": "amountIn", "type": "uint256"},
			{"indexed": false, "name": "amountOut", "type": "uint256"},
			{"indexed": false, "name": "fee", "type": "uint256"}
		],
		"name": "DonationReceived",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "messageId", "type": "bytes32"},
			{"indexed": true, "name": "donor", "type": "address"},
			{"indexed": true, "name": "recipient", "type": "address"},
			{"indexed": false, "name": "dstChainId", "type": "uint64"},
			{"indexed": false, "name": "tokenIn", "type": "address"},
			{"indexed": false, "name": "tokenOut", "type": "address"},
			{"indexed": false, "name": "amountIn", "type": "uint256"},
			{"indexed": false, "name": "amountOut", "type": "uint256"},
			{"indexed": false, "name": "fee", "type": "uint256"}
		],
		"name": "DonationBridgeSent",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "messageId", "type": "bytes32"},
			{"indexed": true, "name": "recipient", "type": "address"},
			{"indexed": false, "name": "tokenOut", "type": "address"},
			{"indexed": false, "name": "amountOut", "type": "uint256"}
		],
		"name": "DonationBridgeReceived",
		"type": "event"
	}
]`

// 收益代币（kToken）ABI，rebase任务读写缩放因子用
const yieldTokenABI = `[
	{
		"inputs": [],
		"name": "scalingFactor",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "newScalingFactor", "type": "uint256"}],
		"name": "setScalingFactor",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// 监听的事件名
const (
	EventDonationReceived       = "DonationReceived"
	EventDonationBridgeSent     = "DonationBridgeSent"
	EventDonationBridgeReceived = "DonationBridgeReceived"
)
