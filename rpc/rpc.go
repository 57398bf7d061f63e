package rpc

import (
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/drawparty/logger"
	"github.com/wfunc/drawparty/persistence"
	"github.com/wfunc/drawparty/room"
	"github.com/wfunc/drawparty/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered by the caller
// with rpc.Register before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes operational queries over net/rpc.
type AdminService struct {
	roomManager   *room.Manager
	playerService *services.PlayerService
}

// NewAdminService creates the admin RPC service. playerService may be nil
// when persistence is disabled.
func NewAdminService(rm *room.Manager, ps *services.PlayerService) *AdminService {
	return &AdminService{roomManager: rm, playerService: ps}
}

type RoomInfo struct {
	Name        string
	PlayerCount int
	MaxPlayers  int
	Phase       string
	Players     []string
}

type ListRoomsArgs struct{}

type ListRoomsReply struct {
	Rooms []RoomInfo
}

func (a *AdminService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	for _, r := range a.roomManager.Rooms() {
		reply.Rooms = append(reply.Rooms, RoomInfo{
			Name:        r.Name,
			PlayerCount: r.PlayerCount(),
			MaxPlayers:  r.MaxPlayers,
			Phase:       r.Phase().String(),
			Players:     r.PlayerNames(),
		})
	}
	return nil
}

type LeaderboardArgs struct {
	Limit int
}

type LeaderboardReply struct {
	Players []persistence.PlayerStats
}

func (a *AdminService) Leaderboard(args *LeaderboardArgs, reply *LeaderboardReply) error {
	if a.playerService == nil {
		return errors.New("persistence disabled")
	}
	players, err := a.playerService.Leaderboard(args.Limit)
	if err != nil {
		return err
	}
	reply.Players = players
	return nil
}
