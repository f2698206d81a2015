package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/JasonP670/4inarow/internal/analytics"
	"github.com/JasonP670/4inarow/internal/config"
	"github.com/JasonP670/4inarow/internal/logging"
	"github.com/JasonP670/4inarow/internal/server"
	"github.com/JasonP670/4inarow/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		os.Stderr.WriteString("logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	if cfg.Database.URL != "" {
		pg, err := storage.NewPostgresStore(ctx, cfg.Database.URL, logger)
		if err != nil {
			logger.Warn("postgres disabled", zap.Error(err))
		} else {
			defer pg.Close()
			if err := pg.EnsureTables(ctx); err != nil {
				logger.Warn("postgres ensure tables failed", zap.Error(err))
			}
			store = pg
		}
	}

	producer := analytics.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	defer producer.Close()

	srv := server.New(server.Config{
		Game:         cfg.Game.EngineOptions(logger),
		IdleTimeout:  cfg.Server.IdleTimeout,
		DropDuration: cfg.Server.DropDuration,
		Store:        store,
		Analytics:    producer,
		Logger:       logger,
	})

	logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
	if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("server shut down")
}
