package ws

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Kubistream/kubi-main-app-sub000/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second    // 单次写超时
	pongWait       = 60 * time.Second    // 等待pong的最长时间
	pingPeriod     = (pongWait * 9) / 10 // ping间隔，必须小于pongWait
	maxMessageSize = 512                 // 客户端消息上限，除保活外客户端无需发消息
	sendBufferSize = 64                  // 单连接发送缓冲
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 悬浮窗嵌在OBS等采集端，放开跨域
		return true
	},
}

// Client 单个订阅连接
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	recipientId int64
	send        chan []byte
}

// Serve 处理 /subscribe/:recipientId 的连接升级
func Serve(hub *Hub, c *gin.Context) {
	recipientId, err := strconv.ParseInt(c.Param("recipientId"), 10, 64)
	if err != nil || recipientId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipient id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("Failed to upgrade connection: %v", err)
		return
	}

	client := &Client{
		hub:         hub,
		conn:        conn,
		recipientId: recipientId,
		send:        make(chan []byte, sendBufferSize),
	}
	hub.Register(client)

	// 握手确认
	welcome, _ := json.Marshal(WelcomePayload{RecipientId: recipientId, Message: "subscribed"})
	ack, _ := json.Marshal(Message{Type: MessageTypeWelcome, Payload: welcome})
	select {
	case client.send <- ack:
	default:
	}

	go client.writePump()
	go client.readPump()
}

// readPump 读取并丢弃客户端消息，驱动pong保活与断开检测
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Subscriber read error: %v", err)
			}
			return
		}
	}
}

// writePump 将发送缓冲写入连接，定期ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub关闭了该连接
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
