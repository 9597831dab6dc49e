package ws

import (
	"encoding/json"
)

// Message 推送消息外层结构
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// 消息类型
const (
	MessageTypeWelcome  = "welcome"
	MessageTypeDonation = "donation"
)

// WelcomePayload 连接握手确认
type WelcomePayload struct {
	RecipientId int64  `json:"recipient_id"`
	Message     string `json:"message"`
}

// DonationAlert 推送给前端悬浮窗的捐赠提醒
type DonationAlert struct {
	NotificationId int64   `json:"notification_id"`
	RecipientName  string  `json:"recipient_name"`
	DonorAddress   string  `json:"donor_address"`
	TokenSymbol    string  `json:"token_symbol"`
	TokenDecimals  int     `json:"token_decimals"`
	Amount         string  `json:"amount"`
	FiatValue      float64 `json:"fiat_value"`
	Message        string  `json:"message"`
	MediaUrl       string  `json:"media_url"`
	TxHash         string  `json:"tx_hash"`
}
