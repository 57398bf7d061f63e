// broadcast/broadcast.go
package broadcast

import (
	"time"

	"github.com/wfunc/drawparty/logger"
	"github.com/wfunc/drawparty/network"
)

// FailureObserver 广播失败时的上报钩子（可选）
type FailureObserver interface {
	IncBroadcastFailures()
	ObserveBroadcastLatency(duration time.Duration)
}

// ConnBroadcaster 面向连接集合的广播器，尽力送达
// 单个连接失败只记日志，不影响其他连接
type ConnBroadcaster struct {
	observer FailureObserver
}

func NewConnBroadcaster() *ConnBroadcaster {
	return &ConnBroadcaster{}
}

// SetObserver 挂上监控钩子
func (b *ConnBroadcaster) SetObserver(o FailureObserver) {
	b.observer = o
}

func (b *ConnBroadcaster) Broadcast(conns []network.Connection, data []byte) {
	start := time.Now()
	for _, conn := range conns {
		if conn == nil || !conn.IsOpen() {
			continue
		}
		if err := conn.Send(data); err != nil {
			logger.Log.Warnf("broadcast to %s failed: %v", conn.RemoteAddr(), err)
			if b.observer != nil {
				b.observer.IncBroadcastFailures()
			}
			// 发送失败不打断其余连接，掉线由读循环统一处理
			continue
		}
	}
	if b.observer != nil {
		b.observer.ObserveBroadcastLatency(time.Since(start))
	}
}

func (b *ConnBroadcaster) SendTo(conn network.Connection, data []byte) error {
	if conn == nil || !conn.IsOpen() {
		return network.ErrConnectionClosed
	}
	if err := conn.Send(data); err != nil {
		if b.observer != nil {
			b.observer.IncBroadcastFailures()
		}
		return err
	}
	return nil
}
