// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/drawparty/network"
)

// Session 把一条连接和握手后的玩家身份绑在一起。
// ClientID 是客户端持有的稳定ID，断线重连后不变。
type Session struct {
	ClientID   string
	Username   string
	RoomName   string
	Conn       network.Connection
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(clientID string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ClientID:   clientID,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

func (s *Session) Send(data []byte) error {
	s.Touch()
	return s.Conn.Send(data)
}

func (s *Session) Touch() {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
}

// BindRoom 记录握手结果
func (s *Session) BindRoom(username, roomName string) {
	s.mutex.Lock()
	s.Username = username
	s.RoomName = roomName
	s.mutex.Unlock()
}

func (s *Session) Bound() (username, roomName string) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Username, s.RoomName
}

func (s *Session) GetID() string {
	return s.ClientID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// Add 注册会话；同一clientID重连时替换旧会话并关闭旧连接
func (m *Manager) Add(sess *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if old, exists := m.sessions[sess.ClientID]; exists && old != sess {
		old.Close()
	}
	m.sessions[sess.ClientID] = sess
}

func (m *Manager) Remove(clientID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, clientID)
}

func (m *Manager) Get(clientID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	sess, exists := m.sessions[clientID]
	return sess, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
