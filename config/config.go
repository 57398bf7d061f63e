package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	// Enabled 为 false 时服务器不落库，只保留内存状态
	Enabled  bool           `mapstructure:"enabled"`
	Driver   string         `mapstructure:"driver"` // "gorm" or "sql"
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// GameConfig 阶段延时都以秒计
type GameConfig struct {
	DefaultMaxPlayers      int `mapstructure:"default_max_players"`
	WaitingForStartSeconds int `mapstructure:"waiting_for_start_seconds"`
	WordPickSeconds        int `mapstructure:"word_pick_seconds"`
	GuessSeconds           int `mapstructure:"guess_seconds"`
	ShowWordSeconds        int `mapstructure:"show_word_seconds"`
	RemoveGraceSeconds     int `mapstructure:"remove_grace_seconds"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_address", ":8001")
	viper.SetDefault("server.rpc_address", ":8002")
	viper.SetDefault("server.metrics_address", ":9100")
	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.driver", "gorm")
	viper.SetDefault("game.default_max_players", 8)
	viper.SetDefault("game.waiting_for_start_seconds", 10)
	viper.SetDefault("game.word_pick_seconds", 20)
	viper.SetDefault("game.guess_seconds", 60)
	viper.SetDefault("game.show_word_seconds", 10)
	viper.SetDefault("game.remove_grace_seconds", 60)

	viper.AutomaticEnv()

	if err = viper.ReadInConfig(); err != nil {
		// 没有配置文件就全部用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
