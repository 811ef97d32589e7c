package client

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ServerConn 负责收发服务器数据的轻量包装
type ServerConn struct {
	ws        *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

// DialServer 建立到服务器的 WebSocket 连接
func DialServer(url string, handshakeTimeout time.Duration) (*ServerConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return &ServerConn{
		ws:   ws,
		send: make(chan []byte, 64),
	}, nil
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃并返回 false）
func (c *ServerConn) Enqueue(b []byte) bool {
	select {
	case c.send <- b:
		return true
	default:
		// 为了实时性，丢弃而不是阻塞渲染协程
		return false
	}
}

// Close 关闭底层连接与发送队列，可安全重复调用
func (c *ServerConn) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *ServerConn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump 读取服务器帧并投递给会话事件队列。
// 事件都带上本连接指针，会话据此过滤旧连接的残留事件。
func (c *ServerConn) readPump(events chan<- connEvent, done <-chan struct{}) {
	defer c.ws.Close()
	c.ws.SetReadLimit(1 << 20) // 1MB

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case events <- connEvent{kind: evClosed, conn: c, err: err}:
			case <-done:
			}
			return
		}
		select {
		case events <- connEvent{kind: evFrame, conn: c, payload: payload}:
		case <-done:
			return
		}
	}
}
