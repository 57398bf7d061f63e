// network/connection.go
package network

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed 连接已关闭
var ErrConnectionClosed = errors.New("connection closed")

// Connection 是房间核心依赖的最小连接接口。
// Send 为尽力而为：对已关闭连接返回错误，由调用方决定是否忽略。
type Connection interface {
	Send(data []byte) error
	ReadMessage() ([]byte, error)
	IsOpen() bool
	Close() error
	RemoteAddr() net.Addr
	SetHeartbeat(interval time.Duration)
}

type WSConnection struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
	heartbeat time.Duration
}

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{
		conn:   conn,
		closed: make(chan struct{}),
	}
}

// Send 以文本帧发送一条序列化好的JSON消息
func (c *WSConnection) Send(data []byte) error {
	if !c.IsOpen() {
		return ErrConnectionClosed
	}

	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WSConnection) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		c.markClosed()
		return nil, err
	}
	if c.heartbeat > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
	}
	return data, nil
}

func (c *WSConnection) IsOpen() bool {
	select {
	case <-c.closed:
		return false
	default:
		return true
	}
}

func (c *WSConnection) SetHeartbeat(interval time.Duration) {
	c.heartbeat = interval
	c.conn.SetReadDeadline(time.Now().Add(interval * 2))
}

func (c *WSConnection) markClosed() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

func (c *WSConnection) Close() error {
	c.markClosed()
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
