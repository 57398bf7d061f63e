package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/drawparty/broadcast"
	"github.com/wfunc/drawparty/logger"
	"github.com/wfunc/drawparty/models"
	"github.com/wfunc/drawparty/monitor"
	"github.com/wfunc/drawparty/network"
	"github.com/wfunc/drawparty/room"
	drawparty_rpc "github.com/wfunc/drawparty/rpc"
	"github.com/wfunc/drawparty/services"
	"github.com/wfunc/drawparty/session"
)

type GameServer struct {
	addr            string
	upgrader        websocket.Upgrader
	roomManager     *room.Manager
	sessionManager  *session.Manager
	playerService   *services.PlayerService
	broadcaster     *broadcast.ConnBroadcaster
	monitor         *monitor.Monitor
	rpcServer       *drawparty_rpc.Server
	defaultCapacity int
	shutdownChan    chan struct{}
}

// NewGameServer wires up the room directory, session registry, broadcaster and
// admin RPC. playerService may be nil when persistence is disabled.
func NewGameServer(addr, rpcAddr string, playerService *services.PlayerService, mon *monitor.Monitor, defaultCapacity int) *GameServer {
	s := &GameServer{
		addr:            addr,
		sessionManager:  session.NewManager(),
		playerService:   playerService,
		monitor:         mon,
		defaultCapacity: defaultCapacity,
		shutdownChan:    make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化广播器和房间目录
	s.broadcaster = broadcast.NewConnBroadcaster()
	if mon != nil {
		s.broadcaster.SetObserver(mon)
	}
	s.roomManager = room.NewManager(s.broadcaster)
	if playerService != nil {
		s.roomManager.SetScoreSink(playerService)
	}

	// 初始化RPC服务器
	rpcServer, err := drawparty_rpc.NewServer(rpcAddr)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	// 注册RPC服务
	adminService := drawparty_rpc.NewAdminService(s.roomManager, playerService)
	rpc.Register(adminService)

	return s
}

// RoomManager exposes the directory for tests and tooling.
func (s *GameServer) RoomManager() *room.Manager {
	return s.roomManager
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	http.HandleFunc("/ws", s.handleWebSocket)
	http.HandleFunc("/api/createRoom", s.handleCreateRoom)
	http.HandleFunc("/api/getRooms", s.handleGetRooms)
	http.HandleFunc("/api/joinRoom", s.handleJoinRoom)

	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
}

// --- REST 接口 ---

type basicResponse struct {
	Successful bool   `json:"successful"`
	Message    string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type createRoomRequest struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"maxPlayers"`
}

func (s *GameServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, basicResponse{Successful: false, Message: "Invalid room request."})
		return
	}

	maxPlayers := req.MaxPlayers
	if maxPlayers < 2 {
		maxPlayers = s.defaultCapacity
	}

	if _, err := s.roomManager.CreateRoom(req.Name, maxPlayers); err != nil {
		writeJSON(w, http.StatusOK, basicResponse{Successful: false, Message: "Room already exists."})
		return
	}
	if s.monitor != nil {
		s.monitor.SetActiveRooms(s.roomManager.Count())
	}
	writeJSON(w, http.StatusOK, basicResponse{Successful: true})
}

type roomResponse struct {
	Name        string `json:"name"`
	MaxPlayers  int    `json:"maxPlayers"`
	PlayerCount int    `json:"playerCount"`
}

func (s *GameServer) handleGetRooms(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(r.URL.Query().Get("searchQuery"))

	result := make([]roomResponse, 0)
	for _, rm := range s.roomManager.Rooms() {
		if query != "" && !strings.Contains(strings.ToLower(rm.Name), query) {
			continue
		}
		result = append(result, roomResponse{
			Name:        rm.Name,
			MaxPlayers:  rm.MaxPlayers,
			PlayerCount: rm.PlayerCount(),
		})
	}
	writeJSON(w, http.StatusOK, result)
}

// handleJoinRoom 加入前的预检，真正入房发生在socket握手
func (s *GameServer) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	roomName := strings.TrimSpace(r.URL.Query().Get("roomName"))
	if username == "" || roomName == "" {
		writeJSON(w, http.StatusBadRequest, basicResponse{Successful: false, Message: "Please enter a username and a room name."})
		return
	}

	rm, exists := s.roomManager.GetRoom(roomName)
	switch {
	case !exists:
		writeJSON(w, http.StatusOK, basicResponse{Successful: false, Message: "Room not found."})
	case rm.ContainsPlayer(username):
		writeJSON(w, http.StatusOK, basicResponse{Successful: false, Message: "A player with this username already joined."})
	case rm.PlayerCount() >= rm.MaxPlayers:
		writeJSON(w, http.StatusOK, basicResponse{Successful: false, Message: "This room is already full."})
	default:
		writeJSON(w, http.StatusOK, basicResponse{Successful: true})
	}
}

// --- WebSocket ---

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}

	// 客户端可以带上自己的标识用于断线重连
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.New().String()
	}

	s.handleConnection(conn, clientID)
}

func (s *GameServer) handleConnection(conn *websocket.Conn, clientID string) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(heartbeatInterval)
	sess := session.NewSession(clientID, wsConn)
	s.sessionManager.Add(sess)
	if s.monitor != nil {
		s.monitor.IncOnlinePlayers()
	}

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		if s.monitor != nil {
			s.monitor.DecOnlinePlayers()
		}
		if _, roomName := sess.Bound(); roomName != "" {
			if rm, exists := s.roomManager.GetRoom(roomName); exists {
				rm.RemovePlayer(sess.GetID())
			}
			if s.monitor != nil {
				s.monitor.SetActiveRooms(s.roomManager.Count())
			}
		}
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			data, err := wsConn.ReadMessage()
			if err != nil {
				return
			}
			if done := s.handleMessage(sess, data); done {
				return
			}
		}
	}
}

// handleMessage dispatches one inbound frame. Returns true when the client
// asked to disconnect.
func (s *GameServer) handleMessage(sess *session.Session, data []byte) bool {
	if s.monitor != nil {
		s.monitor.IncMessagesReceived()
	}

	msgType, err := network.ParseEnvelope(data)
	if err != nil {
		logger.Log.Warnf("Malformed frame from session %s: %v", sess.GetID(), err)
		return false
	}

	switch msgType {
	case network.TypeJoinRoomHandshake:
		s.handleJoinHandshake(sess, data)
	case network.TypeChatMessage:
		s.handleChatMessage(sess, data)
	case network.TypeDrawData:
		s.handleDrawData(sess, data)
	case network.TypeChosenWord:
		s.handleChosenWord(sess, data)
	case network.TypePing:
		sess.Touch()
		sess.Send(models.ToJSON(&models.Ping{Type: network.TypePing}))
	case network.TypeDisconnectRequest:
		return true
	default:
		logger.Log.Infof("Unknown message type %q from session %s", msgType, sess.GetID())
	}
	return false
}

func (s *GameServer) handleJoinHandshake(sess *session.Session, data []byte) {
	var handshake models.JoinRoomHandshake
	if err := json.Unmarshal(data, &handshake); err != nil {
		logger.Log.Warnf("Bad handshake from session %s: %v", sess.GetID(), err)
		return
	}
	if handshake.Username == "" || handshake.RoomName == "" {
		sess.Send(models.ToJSON(models.NewGameError(models.ErrorRoomNotFound)))
		return
	}

	rm, exists := s.roomManager.GetRoom(handshake.RoomName)
	if !exists {
		sess.Send(models.ToJSON(models.NewGameError(models.ErrorRoomNotFound)))
		return
	}

	if _, err := rm.AddPlayer(sess.GetID(), handshake.Username, sess.Conn); err != nil {
		switch err {
		case room.ErrRoomFull:
			sess.Send(models.ToJSON(models.NewGameError(models.ErrorRoomFull)))
		case room.ErrUsernameTaken:
			sess.Send(models.ToJSON(models.NewGameError(models.ErrorUsernameTaken)))
		default:
			logger.Log.Errorf("Join failed for session %s: %v", sess.GetID(), err)
		}
		return
	}

	sess.BindRoom(handshake.Username, handshake.RoomName)
	logger.Log.Infof("Session %s joined room %s as %s", sess.GetID(), handshake.RoomName, handshake.Username)
}

func (s *GameServer) handleChatMessage(sess *session.Session, data []byte) {
	rm, ok := s.boundRoom(sess)
	if !ok {
		return
	}

	var msg models.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	username, _ := sess.Bound()
	msg.From = username // 不信任客户端填的发送者

	// 猜中的消息不转发，免得把谜底漏给还在猜的人
	if rm.CheckGuessAndNotify(&msg) {
		if s.monitor != nil {
			s.monitor.IncCorrectGuesses()
		}
		return
	}
	rm.BroadcastChat(&msg)
}

func (s *GameServer) handleDrawData(sess *session.Session, data []byte) {
	rm, ok := s.boundRoom(sess)
	if !ok {
		return
	}

	var drawData models.DrawData
	if err := json.Unmarshal(data, &drawData); err != nil {
		return
	}
	rm.SubmitDrawData(sess.GetID(), json.RawMessage(data), &drawData)
}

func (s *GameServer) handleChosenWord(sess *session.Session, data []byte) {
	rm, ok := s.boundRoom(sess)
	if !ok {
		return
	}

	var chosen models.ChosenWord
	if err := json.Unmarshal(data, &chosen); err != nil {
		return
	}
	rm.SetWordAndSwitchToGameRunning(chosen.ChosenWord)
}

func (s *GameServer) boundRoom(sess *session.Session) (*room.Room, bool) {
	_, roomName := sess.Bound()
	if roomName == "" {
		logger.Log.Warnf("Session %s sent a room message but is not in a room", sess.GetID())
		return nil, false
	}
	rm, exists := s.roomManager.GetRoom(roomName)
	if !exists {
		logger.Log.Errorf("Room %s not found for session %s", roomName, sess.GetID())
		return nil, false
	}
	return rm, true
}

// heartbeatInterval matches the read deadline set on new connections.
const heartbeatInterval = 30 * time.Second
