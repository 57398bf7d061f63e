package room

import (
	"github.com/wfunc/drawparty/network"
)

// Player 房间内一名玩家的实时状态。ClientID 跨重连保持不变，
// Conn 在重连时被替换。
type Player struct {
	Username  string
	ClientID  string
	Conn      network.Connection
	IsDrawing bool
	Score     int
	Rank      int
}

func NewPlayer(username, clientID string, conn network.Connection) *Player {
	return &Player{
		Username: username,
		ClientID: clientID,
		Conn:     conn,
	}
}
