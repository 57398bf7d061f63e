package room

import "github.com/wfunc/drawparty/network"

// Broadcaster delivers serialized messages to connections. Implementations
// must be best-effort: a failed or closed connection is skipped, never fatal.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	Broadcast(conns []network.Connection, data []byte)
	SendTo(conn network.Connection, data []byte) error
}

// ScoreSink 可选的计分落库钩子，调用必须不阻塞房间
type ScoreSink interface {
	RecordGuess(clientID, username string, points int)
	RecordDrawerDelta(clientID, username string, delta int)
}
