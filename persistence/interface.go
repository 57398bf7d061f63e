// persistence/interface.go
package persistence

import (
	"fmt"
	"time"
)

// PlayerStats 玩家累计战绩
type PlayerStats struct {
	ClientID     string    `json:"clientId"`
	Username     string    `json:"username"`
	TotalScore   int64     `json:"totalScore"`
	WordsGuessed int64     `json:"wordsGuessed"`
	RoundsDrawn  int64     `json:"roundsDrawn"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store 战绩存储接口
type Store interface {
	AddGuessPoints(clientID, username string, points int) error
	AddDrawerDelta(clientID, username string, delta int) error
	GetPlayerStats(clientID string) (*PlayerStats, error)
	TopPlayers(limit int) ([]PlayerStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
