package main

import (
	"time"

	"github.com/wfunc/drawparty/config"
	"github.com/wfunc/drawparty/logger"
	"github.com/wfunc/drawparty/monitor"
	"github.com/wfunc/drawparty/persistence"
	"github.com/wfunc/drawparty/room"
	"github.com/wfunc/drawparty/server"
	"github.com/wfunc/drawparty/services"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize persistence (optional)
	var playerService *services.PlayerService
	if cfg.Database.Enabled {
		var store persistence.Store
		switch cfg.Database.Driver {
		case "sql":
			store, err = persistence.NewSQLStore(
				cfg.Database.Postgres.Host,
				cfg.Database.Postgres.Port,
				cfg.Database.Postgres.User,
				cfg.Database.Postgres.Password,
				cfg.Database.Postgres.DBName,
			)
		default:
			store, err = persistence.NewGormStore(
				cfg.Database.Postgres.Host,
				cfg.Database.Postgres.Port,
				cfg.Database.Postgres.User,
				cfg.Database.Postgres.Password,
				cfg.Database.Postgres.DBName,
			)
		}
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		defer store.Close()
		playerService = services.NewPlayerService(store)
		logger.Log.Info("Database connection successful.")
	} else {
		logger.Log.Info("Persistence disabled, scores are kept in memory only.")
	}

	// Metrics endpoint
	mon := monitor.NewMonitor("drawparty")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Initialize Game Server
	gameServer := server.NewGameServer(
		cfg.Server.HTTPAddress,
		cfg.Server.RPCAddress,
		playerService,
		mon,
		cfg.Game.DefaultMaxPlayers,
	)

	// Apply configured phase delays
	timings := room.DefaultTimings()
	timings.WaitingForStartToNewRound = time.Duration(cfg.Game.WaitingForStartSeconds) * time.Second
	timings.NewRoundToGameRunning = time.Duration(cfg.Game.WordPickSeconds) * time.Second
	timings.GameRunningToShowWord = time.Duration(cfg.Game.GuessSeconds) * time.Second
	timings.ShowWordToNewRound = time.Duration(cfg.Game.ShowWordSeconds) * time.Second
	timings.PlayerRemoveGrace = time.Duration(cfg.Game.RemoveGraceSeconds) * time.Second
	gameServer.RoomManager().SetTimings(timings)

	// Start Server
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
