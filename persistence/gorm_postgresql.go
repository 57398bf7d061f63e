// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore 使用GORM的PostgreSQL实现
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建GORM PostgreSQL数据库连接
func NewGormStore(host string, port int, user, password, dbname string) (*GormStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&PlayerStatsModel{}); err != nil {
		return nil, err
	}

	return &GormStore{db: db}, nil
}

// PlayerStatsModel GORM模型
type PlayerStatsModel struct {
	ID           uint   `gorm:"primaryKey"`
	ClientID     string `gorm:"uniqueIndex;not null"`
	Username     string `gorm:"index;not null"`
	TotalScore   int64  `gorm:"not null;default:0"`
	WordsGuessed int64  `gorm:"not null;default:0"`
	RoundsDrawn  int64  `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (PlayerStatsModel) TableName() string { return "player_stats" }

// AddGuessPoints 猜中计分，累加总分和猜中次数
func (s *GormStore) AddGuessPoints(clientID, username string, points int) error {
	return s.db.Exec(`
        INSERT INTO player_stats (client_id, username, total_score, words_guessed, rounds_drawn, created_at, updated_at)
        VALUES (?, ?, ?, 1, 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
        ON CONFLICT (client_id)
        DO UPDATE SET username = EXCLUDED.username,
                      total_score = player_stats.total_score + EXCLUDED.total_score,
                      words_guessed = player_stats.words_guessed + 1,
                      updated_at = CURRENT_TIMESTAMP`,
		clientID, username, points,
	).Error
}

// AddDrawerDelta 画手加减分，同时累加画图轮数
func (s *GormStore) AddDrawerDelta(clientID, username string, delta int) error {
	return s.db.Exec(`
        INSERT INTO player_stats (client_id, username, total_score, words_guessed, rounds_drawn, created_at, updated_at)
        VALUES (?, ?, ?, 0, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
        ON CONFLICT (client_id)
        DO UPDATE SET username = EXCLUDED.username,
                      total_score = player_stats.total_score + EXCLUDED.total_score,
                      rounds_drawn = player_stats.rounds_drawn + 1,
                      updated_at = CURRENT_TIMESTAMP`,
		clientID, username, delta,
	).Error
}

// GetPlayerStats 查询单个玩家战绩
func (s *GormStore) GetPlayerStats(clientID string) (*PlayerStats, error) {
	var model PlayerStatsModel
	if err := s.db.Where("client_id = ?", clientID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return &PlayerStats{
		ClientID:     model.ClientID,
		Username:     model.Username,
		TotalScore:   model.TotalScore,
		WordsGuessed: model.WordsGuessed,
		RoundsDrawn:  model.RoundsDrawn,
		UpdatedAt:    model.UpdatedAt,
	}, nil
}

// TopPlayers 按总分排序的排行榜
func (s *GormStore) TopPlayers(limit int) ([]PlayerStats, error) {
	var models []PlayerStatsModel
	err := s.db.Order("total_score DESC").Limit(limit).Find(&models).Error
	if err != nil {
		return nil, err
	}

	stats := make([]PlayerStats, 0, len(models))
	for _, m := range models {
		stats = append(stats, PlayerStats{
			ClientID:     m.ClientID,
			Username:     m.Username,
			TotalScore:   m.TotalScore,
			WordsGuessed: m.WordsGuessed,
			RoundsDrawn:  m.RoundsDrawn,
			UpdatedAt:    m.UpdatedAt,
		})
	}
	return stats, nil
}

// Close 关闭数据库连接
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
