package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/JasonP670/4inarow/internal/analytics"
	"github.com/JasonP670/4inarow/internal/config"
	"github.com/JasonP670/4inarow/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	every := flag.Duration("summary-every", 30*time.Second, "how often to log the running summary")
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

	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("analytics consumer listening",
		zap.Strings("brokers", brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group_id", cfg.Kafka.GroupID),
	)

	metrics := analytics.NewMetrics()
	go func() {
		ticker := time.NewTicker(*every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.Log(logger)
			}
		}
	}()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				metrics.Log(logger)
				return
			}
			logger.Fatal("read failed", zap.Error(err))
		}
		e, err := analytics.Decode(msg.Value)
		if err != nil {
			logger.Warn("undecodable event", zap.Int64("offset", msg.Offset), zap.Error(err))
			continue
		}
		if !metrics.Record(e) {
			logger.Debug("event skipped", zap.String("event", e.Event))
			continue
		}
		logger.Debug("event",
			zap.String("event", e.Event),
			zap.Any("session_id", e.Payload["sessionId"]),
			zap.Any("winner", e.Payload["winner"]),
		)
	}
}
