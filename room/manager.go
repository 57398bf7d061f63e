// room/manager.go
package room

import (
	"sync"

	"github.com/wfunc/drawparty/logger"
	"github.com/wfunc/drawparty/network"
)

// Manager 管理所有房间（房间目录）
type Manager struct {
	rooms       map[string]*Room
	mutex       sync.RWMutex
	timings     Timings
	broadcaster Broadcaster
	scores      ScoreSink
}

func NewManager(broadcaster Broadcaster) *Manager {
	return &Manager{
		rooms:       make(map[string]*Room),
		timings:     DefaultTimings(),
		broadcaster: broadcaster,
	}
}

// SetTimings 覆盖默认阶段延时，只影响之后创建的房间
func (m *Manager) SetTimings(t Timings) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.timings = t
}

func (m *Manager) SetScoreSink(s ScoreSink) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.scores = s
}

// CreateRoom 创建并登记一个新房间，重名报错
func (m *Manager) CreateRoom(name string, maxPlayers int) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.rooms[name]; exists {
		return nil, ErrRoomExists
	}

	room := NewRoom(name, maxPlayers, m.timings, m.broadcaster)
	room.scores = m.scores
	room.onEmpty = m.dropEmptyRoom
	m.rooms[name] = room

	logger.Log.Infof("room %s created, max players %d", name, maxPlayers)
	return room, nil
}

func (m *Manager) GetRoom(name string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	room, exists := m.rooms[name]
	return room, exists
}

func (m *Manager) RoomExists(name string) bool {
	_, exists := m.GetRoom(name)
	return exists
}

// RemoveRoom 注销并关闭一个房间
func (m *Manager) RemoveRoom(name string) {
	m.mutex.Lock()
	room, exists := m.rooms[name]
	if exists {
		delete(m.rooms, name)
	}
	m.mutex.Unlock()

	// 在目录锁外关停，避免和房间锁交叉
	if exists {
		room.Kill()
		logger.Log.Infof("room %s removed", name)
	}
}

// dropEmptyRoom 房间清空后自我注销的回调；房间此时已自行关停
func (m *Manager) dropEmptyRoom(name string) {
	m.mutex.Lock()
	delete(m.rooms, name)
	m.mutex.Unlock()
	logger.Log.Infof("room %s emptied out and was destroyed", name)
}

// Rooms 返回当前房间快照
func (m *Manager) Rooms() []*Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// JoinRoom 按名字查房并加入
func (m *Manager) JoinRoom(roomName, clientID, username string, conn network.Connection) (*Player, error) {
	room, exists := m.GetRoom(roomName)
	if !exists {
		return nil, ErrRoomNotFound
	}
	return room.AddPlayer(clientID, username, conn)
}
