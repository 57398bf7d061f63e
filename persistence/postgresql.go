// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq" // PostgreSQL 驱动
)

// SQLStore 基于 database/sql 的 PostgreSQL 实现
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore 创建 PostgreSQL 数据库连接
func NewSQLStore(host string, port int, user, password, dbname string) (*SQLStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(db); err != nil {
		return nil, err
	}

	return &SQLStore{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS player_stats (
            id SERIAL PRIMARY KEY,
            client_id VARCHAR(64) UNIQUE NOT NULL,
            username VARCHAR(255) NOT NULL,
            total_score BIGINT NOT NULL DEFAULT 0,
            words_guessed BIGINT NOT NULL DEFAULT 0,
            rounds_drawn BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_player_stats_client_id ON player_stats(client_id);
        CREATE INDEX IF NOT EXISTS idx_player_stats_total_score ON player_stats(total_score DESC);
    `)

	return err
}

// AddGuessPoints 猜中计分，累加总分和猜中次数
func (s *SQLStore) AddGuessPoints(clientID, username string, points int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO player_stats (client_id, username, total_score, words_guessed, rounds_drawn)
        VALUES ($1, $2, $3, 1, 0)
        ON CONFLICT (client_id)
        DO UPDATE SET username = EXCLUDED.username,
                      total_score = player_stats.total_score + EXCLUDED.total_score,
                      words_guessed = player_stats.words_guessed + 1,
                      updated_at = CURRENT_TIMESTAMP
    `

	_, err := s.db.ExecContext(ctx, query, clientID, username, points)
	return err
}

// AddDrawerDelta 画手加减分，同时累加画图轮数
func (s *SQLStore) AddDrawerDelta(clientID, username string, delta int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO player_stats (client_id, username, total_score, words_guessed, rounds_drawn)
        VALUES ($1, $2, $3, 0, 1)
        ON CONFLICT (client_id)
        DO UPDATE SET username = EXCLUDED.username,
                      total_score = player_stats.total_score + EXCLUDED.total_score,
                      rounds_drawn = player_stats.rounds_drawn + 1,
                      updated_at = CURRENT_TIMESTAMP
    `

	_, err := s.db.ExecContext(ctx, query, clientID, username, delta)
	return err
}

// GetPlayerStats 查询单个玩家战绩
func (s *SQLStore) GetPlayerStats(clientID string) (*PlayerStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var stats PlayerStats
	query := `
        SELECT client_id, username, total_score, words_guessed, rounds_drawn, updated_at
        FROM player_stats WHERE client_id = $1
    `
	err := s.db.QueryRowContext(ctx, query, clientID).Scan(
		&stats.ClientID, &stats.Username, &stats.TotalScore,
		&stats.WordsGuessed, &stats.RoundsDrawn, &stats.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return &stats, nil
}

// TopPlayers 按总分排序的排行榜
func (s *SQLStore) TopPlayers(limit int) ([]PlayerStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT client_id, username, total_score, words_guessed, rounds_drawn, updated_at
        FROM player_stats ORDER BY total_score DESC LIMIT $1
    `
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []PlayerStats
	for rows.Next() {
		var st PlayerStats
		if err := rows.Scan(&st.ClientID, &st.Username, &st.TotalScore,
			&st.WordsGuessed, &st.RoundsDrawn, &st.UpdatedAt); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}

	return stats, rows.Err()
}

// Close 关闭数据库连接
func (s *SQLStore) Close() error {
	return s.db.Close()
}
