package ws

import (
	"encoding/json"
	"sync"

	"github.com/Kubistream/kubi-main-app-sub000/internal/logger"
)

// Hub 按主播ID维护在线订阅连接并向其广播消息。
// 注册表只通过 Register/Unregister/Broadcast 访问，内部map不对外暴露。
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]bool // recipientId -> 连接集合
}

// NewHub 创建推送中心
func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]bool),
	}
}

// Register 注册一个订阅连接
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.recipientId]
	if !ok {
		set = make(map[*Client]bool)
		h.clients[client.recipientId] = set
	}
	set[client] = true
	logger.Info("Subscriber connected for recipient %d (%d online)", client.recipientId, len(set))
}

// Unregister 移除一个订阅连接
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.recipientId]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.recipientId)
	}
	logger.Info("Subscriber disconnected for recipient %d (%d online)", client.recipientId, len(set))
}

// Broadcast 向主播的所有在线连接推送消息。没有在线连接时静默返回nil。
func (h *Hub) Broadcast(recipientId int64, msgType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	messageBytes, err := json.Marshal(Message{Type: msgType, Payload: payloadJSON})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.clients[recipientId]
	if len(set) == 0 {
		// 没人在看悬浮窗，广播空转
		return nil
	}

	sent := 0
	for client := range set {
		select {
		case client.send <- messageBytes:
			sent++
		default:
			// 发送缓冲已满，视为死连接直接摘除
			logger.Warn("Subscriber buffer full for recipient %d, dropping connection", recipientId)
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, recipientId)
	}

	logger.Debug("Broadcast %s to %d subscribers of recipient %d", msgType, sent, recipientId)
	return nil
}

// ConnectionCount 当前在线连接总数
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, set := range h.clients {
		total += len(set)
	}
	return total
}

// Stop 关闭所有连接并清空注册表
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for recipientId, set := range h.clients {
		for client := range set {
			close(client.send)
		}
		delete(h.clients, recipientId)
	}
	logger.Info("Push hub stopped, registry cleared")
}
