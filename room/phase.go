// room/phase.go
package room

import "time"

// Phase 表示一局游戏当前所处的阶段
type Phase int

const (
	WaitingForPlayers Phase = iota
	WaitingForStart
	NewRound
	GameRunning
	ShowWord
)

func (p Phase) String() string {
	switch p {
	case WaitingForPlayers:
		return "WAITING_FOR_PLAYERS"
	case WaitingForStart:
		return "WAITING_FOR_START"
	case NewRound:
		return "NEW_ROUND"
	case GameRunning:
		return "GAME_RUNNING"
	case ShowWord:
		return "SHOW_WORD"
	default:
		return "UNKNOWN"
	}
}

// Timings 一个房间用到的全部延时。测试时传入缩短的值。
type Timings struct {
	TickInterval time.Duration

	WaitingForStartToNewRound time.Duration
	NewRoundToGameRunning     time.Duration
	GameRunningToShowWord     time.Duration
	ShowWordToNewRound        time.Duration

	// PlayerRemoveGrace 断线后保留玩家快照等待重连的时长
	PlayerRemoveGrace time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		TickInterval:              time.Second,
		WaitingForStartToNewRound: 10 * time.Second,
		NewRoundToGameRunning:     20 * time.Second,
		GameRunningToShowWord:     60 * time.Second,
		ShowWordToNewRound:        10 * time.Second,
		PlayerRemoveGrace:         60 * time.Second,
	}
}

// delayFor returns the countdown duration armed on entry into a phase.
func (t Timings) delayFor(p Phase) time.Duration {
	switch p {
	case WaitingForStart:
		return t.WaitingForStartToNewRound
	case NewRound:
		return t.NewRoundToGameRunning
	case GameRunning:
		return t.GameRunningToShowWord
	case ShowWord:
		return t.ShowWordToNewRound
	default:
		return 0
	}
}

// 计分常量
const (
	penaltyNobodyGuessed    = 50
	guessScoreDefault       = 50
	guessScoreMultiplier    = 50
	drawingPlayerGuessBonus = 50
)
