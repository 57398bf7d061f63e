// models/messages.go
package models

import (
	"encoding/json"

	"github.com/wfunc/drawparty/network"
)

// Announcement 公告类型
const (
	AnnouncementPlayerJoined      = 1
	AnnouncementPlayerLeft        = 2
	AnnouncementPlayerGuessedWord = 3
	AnnouncementEverybodyGuessed  = 4
)

// GameError 错误码
const (
	ErrorRoomNotFound  = 0
	ErrorRoomFull      = 1
	ErrorUsernameTaken = 2
)

// Announcement is a system chat line shown to every player in a room.
type Announcement struct {
	Type             string `json:"type"`
	Message          string `json:"message"`
	Timestamp        int64  `json:"timestamp"`
	AnnouncementType int    `json:"announcementType"`
}

func NewAnnouncement(message string, timestamp int64, kind int) *Announcement {
	return &Announcement{
		Type:             network.TypeAnnouncement,
		Message:          message,
		Timestamp:        timestamp,
		AnnouncementType: kind,
	}
}

// PhaseChange carries the countdown state. Phase is only set on the first
// tick of a countdown; later ticks just decrement Time.
type PhaseChange struct {
	Type          string `json:"type"`
	Phase         string `json:"phase,omitempty"`
	Time          int64  `json:"time"`
	DrawingPlayer string `json:"drawingPlayer,omitempty"`
}

func NewPhaseChange(phase string, timeMs int64, drawingPlayer string) *PhaseChange {
	return &PhaseChange{
		Type:          network.TypePhaseChange,
		Phase:         phase,
		Time:          timeMs,
		DrawingPlayer: drawingPlayer,
	}
}

// PlayerData 排行榜里的一行
type PlayerData struct {
	Username  string `json:"username"`
	IsDrawing bool   `json:"isDrawing"`
	Score     int    `json:"score"`
	Rank      int    `json:"rank"`
}

type PlayersList struct {
	Type    string       `json:"type"`
	Players []PlayerData `json:"players"`
}

func NewPlayersList(players []PlayerData) *PlayersList {
	return &PlayersList{
		Type:    network.TypePlayersList,
		Players: players,
	}
}

// GameState tells a player who draws and which word (or mask) they see.
type GameState struct {
	Type          string `json:"type"`
	DrawingPlayer string `json:"drawingPlayer"`
	Word          string `json:"word"`
}

func NewGameState(drawingPlayer, word string) *GameState {
	return &GameState{
		Type:          network.TypeGameState,
		DrawingPlayer: drawingPlayer,
		Word:          word,
	}
}

// ChosenWord reveals the secret word at the end of a round, and is also the
// inbound frame the drawing player sends to pick a candidate.
type ChosenWord struct {
	Type       string `json:"type"`
	ChosenWord string `json:"chosenWord"`
	RoomName   string `json:"roomName"`
}

func NewChosenWord(word, roomName string) *ChosenWord {
	return &ChosenWord{
		Type:       network.TypeChosenWord,
		ChosenWord: word,
		RoomName:   roomName,
	}
}

// NewWords 发给画手的三个候选词
type NewWords struct {
	Type     string   `json:"type"`
	NewWords []string `json:"newWords"`
}

func NewNewWords(words []string) *NewWords {
	return &NewWords{
		Type:     network.TypeNewWords,
		NewWords: words,
	}
}

// Draw motion events. The core only cares about the in-progress/ended flag.
const (
	MotionEventUp   = 1
	MotionEventMove = 2
)

// DrawData 画笔事件，除 motionEvent 外对核心不透明，原样转发
type DrawData struct {
	Type        string  `json:"type"`
	RoomName    string  `json:"roomName"`
	FromX       float64 `json:"fromX"`
	FromY       float64 `json:"fromY"`
	ToX         float64 `json:"toX"`
	ToY         float64 `json:"toY"`
	StrokeWidth float64 `json:"strokeWidth"`
	Color       int     `json:"color"`
	MotionEvent int     `json:"motionEvent"`
}

// RoundDrawInfo replays the accumulated raw draw events to a late joiner.
type RoundDrawInfo struct {
	Type string            `json:"type"`
	Data []json.RawMessage `json:"data"`
}

func NewRoundDrawInfo(data []json.RawMessage) *RoundDrawInfo {
	return &RoundDrawInfo{
		Type: network.TypeRoundDrawInfo,
		Data: data,
	}
}

// ChatMessage 聊天消息，游戏中同时作为猜词提交
type ChatMessage struct {
	Type      string `json:"type"`
	From      string `json:"from"`
	RoomName  string `json:"roomName"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// JoinRoomHandshake binds a socket to a room, carrying the stable client id
// that survives reconnects.
type JoinRoomHandshake struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	RoomName string `json:"roomName"`
	ClientID string `json:"clientId"`
}

type GameError struct {
	Type      string `json:"type"`
	ErrorType int    `json:"errorType"`
}

func NewGameError(errorType int) *GameError {
	return &GameError{
		Type:      network.TypeGameError,
		ErrorType: errorType,
	}
}

type Ping struct {
	Type string `json:"type"`
}

type DisconnectRequest struct {
	Type string `json:"type"`
}

// ToJSON 序列化任意一条消息，失败时返回nil交由调用方丢弃
func ToJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
