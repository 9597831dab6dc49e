package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, recipientId int64, buffer int) *Client {
	return &Client{
		hub:         hub,
		recipientId: recipientId,
		send:        make(chan []byte, buffer),
	}
}

func TestBroadcastWithoutSubscribers(t *testing.T) {
	hub := NewHub()
	// 没人在线时广播空转，不算错误
	require.NoError(t, hub.Broadcast(42, MessageTypeDonation, &DonationAlert{Amount: "100"}))
	require.Equal(t, 0, hub.ConnectionCount())
}

func TestBroadcastReachesAllSubscribersOfRecipient(t *testing.T) {
	hub := NewHub()
	first := newTestClient(hub, 1, sendBufferSize)
	second := newTestClient(hub, 1, sendBufferSize)
	other := newTestClient(hub, 2, sendBufferSize)
	hub.Register(first)
	hub.Register(second)
	hub.Register(other)

	alert := &DonationAlert{NotificationId: 7, Amount: "995000", TokenSymbol: "kUSD"}
	require.NoError(t, hub.Broadcast(1, MessageTypeDonation, alert))

	for _, client := range []*Client{first, second} {
		raw := <-client.send
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		require.Equal(t, MessageTypeDonation, msg.Type)

		var got DonationAlert
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		require.EqualValues(t, 7, got.NotificationId)
		require.Equal(t, "kUSD", got.TokenSymbol)
	}

	// 其他主播的连接不应收到消息
	require.Empty(t, other.send)
}

func TestBroadcastDropsClientWithFullBuffer(t *testing.T) {
	hub := NewHub()
	stuck := newTestClient(hub, 1, 1)
	hub.Register(stuck)

	require.NoError(t, hub.Broadcast(1, MessageTypeDonation, &DonationAlert{Amount: "1"}))
	// 缓冲已满，第二次广播应摘除该连接
	require.NoError(t, hub.Broadcast(1, MessageTypeDonation, &DonationAlert{Amount: "2"}))

	require.Equal(t, 0, hub.ConnectionCount())

	// send已被Hub关闭
	msg, ok := <-stuck.send
	require.True(t, ok)
	require.NotEmpty(t, msg)
	_, ok = <-stuck.send
	require.False(t, ok)
}

func TestUnregisterRemovesConnection(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, 1, sendBufferSize)
	hub.Register(client)
	require.Equal(t, 1, hub.ConnectionCount())

	hub.Unregister(client)
	require.Equal(t, 0, hub.ConnectionCount())

	// 重复注销不应panic
	hub.Unregister(client)

	require.NoError(t, hub.Broadcast(1, MessageTypeDonation, &DonationAlert{Amount: "1"}))
}

func TestStopClosesAllConnections(t *testing.T) {
	hub := NewHub()
	clients := make([]*Client, 0, 3)
	for i := int64(1); i <= 3; i++ {
		client := newTestClient(hub, i, sendBufferSize)
		hub.Register(client)
		clients = append(clients, client)
	}

	hub.Stop()
	require.Equal(t, 0, hub.ConnectionCount())
	for _, client := range clients {
		_, ok := <-client.send
		require.False(t, ok)
	}
}

func TestConcurrentBroadcastAndRegister(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			recipientId := int64(n%2 + 1)
			client := newTestClient(hub, recipientId, sendBufferSize)
			hub.Register(client)
			for j := 0; j < 20; j++ {
				_ = hub.Broadcast(recipientId, MessageTypeDonation, &DonationAlert{Amount: fmt.Sprintf("%d", j)})
			}
			hub.Unregister(client)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 0, hub.ConnectionCount())
}
