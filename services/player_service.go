// services/player_service.go
package services

import (
	"github.com/wfunc/drawparty/logger"
	"github.com/wfunc/drawparty/persistence"
)

// PlayerService 封装玩家战绩的读写，房间通过 ScoreSink 接口调用
type PlayerService struct {
	store persistence.Store
}

func NewPlayerService(store persistence.Store) *PlayerService {
	return &PlayerService{store: store}
}

// RecordGuess 落库一次猜中得分，房间在独立goroutine里调用，失败只记日志
func (s *PlayerService) RecordGuess(clientID, username string, points int) {
	if err := s.store.AddGuessPoints(clientID, username, points); err != nil {
		logger.Log.Errorf("failed to record guess for %s: %v", username, err)
	}
}

// RecordDrawerDelta 落库画手的加分或罚分
func (s *PlayerService) RecordDrawerDelta(clientID, username string, delta int) {
	if err := s.store.AddDrawerDelta(clientID, username, delta); err != nil {
		logger.Log.Errorf("failed to record drawer delta for %s: %v", username, err)
	}
}

// GetPlayerStats 查询单个玩家战绩
func (s *PlayerService) GetPlayerStats(clientID string) (*persistence.PlayerStats, error) {
	return s.store.GetPlayerStats(clientID)
}

// Leaderboard 按累计总分排序的前N名
func (s *PlayerService) Leaderboard(limit int) ([]persistence.PlayerStats, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.TopPlayers(limit)
}
