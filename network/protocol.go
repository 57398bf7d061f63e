package network

import "encoding/json"

// 消息类型标签，对应每个JSON帧的 "type" 字段
const (
	TypeChatMessage       = "chat_message"
	TypeDrawData          = "draw_data"
	TypeAnnouncement      = "announcement"
	TypeJoinRoomHandshake = "join_room_handshake"
	TypePhaseChange       = "phase_change"
	TypeChosenWord        = "chosen_word"
	TypeGameState         = "game_state"
	TypeNewWords          = "new_words"
	TypePlayersList       = "players_list"
	TypeRoundDrawInfo     = "round_draw_info"
	TypeGameError         = "game_error"
	TypeDisconnectRequest = "disconnect_request"
	TypePing              = "ping"
)

// Envelope 只解出类型标签，载荷由各处理器再解一次
type Envelope struct {
	Type string `json:"type"`
}

func ParseEnvelope(data []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", err
	}
	return env.Type, nil
}
