package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JasonP670/4inarow/internal/game"
)

type Config struct {
	Server   ServerConfig
	Game     GameConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Addr         string
	IdleTimeout  time.Duration
	DropDuration time.Duration
}

type GameConfig struct {
	Columns         int
	Rows            int
	StartColumn     int
	TokensPerPlayer int
	Player1Name     string
	Player1Color    string
	Player2Name     string
	Player2Color    string
}

type DatabaseConfig struct {
	URL string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// envKeys maps config keys to the environment variables that override them.
var envKeys = map[string]string{
	"server.addr":            "ADDR",
	"server.port":            "PORT",
	"server.idle_timeout":    "IDLE_TIMEOUT",
	"server.drop_duration":   "DROP_DURATION",
	"game.columns":           "BOARD_COLUMNS",
	"game.rows":              "BOARD_ROWS",
	"game.start_column":      "START_COLUMN",
	"game.tokens_per_player": "TOKENS_PER_PLAYER",
	"game.player1_name":      "PLAYER1_NAME",
	"game.player1_color":     "PLAYER1_COLOR",
	"game.player2_name":      "PLAYER2_NAME",
	"game.player2_color":     "PLAYER2_COLOR",
	"database.url":           "POSTGRES_URL",
	"kafka.brokers":          "KAFKA_BROKERS",
	"kafka.topic":            "KAFKA_TOPIC",
	"kafka.group_id":         "KAFKA_GROUP_ID",
	"logging.level":          "LOG_LEVEL",
	"logging.format":         "LOG_FORMAT",
}

func setDefaults(v *viper.Viper) {
	defaults := game.DefaultOptions()
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.idle_timeout", "10m")
	v.SetDefault("server.drop_duration", "400ms")
	v.SetDefault("game.columns", defaults.Columns)
	v.SetDefault("game.rows", defaults.Rows)
	v.SetDefault("game.start_column", -1)
	v.SetDefault("game.tokens_per_player", 0)
	v.SetDefault("game.player1_name", defaults.Players[0].Name)
	v.SetDefault("game.player1_color", defaults.Players[0].Color)
	v.SetDefault("game.player2_name", defaults.Players[1].Name)
	v.SetDefault("game.player2_color", defaults.Players[1].Color)
	v.SetDefault("kafka.topic", "game-events")
	v.SetDefault("kafka.group_id", "analytics-consumer")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads defaults, the optional YAML file at path, then the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	idle, err := parseDuration(v.GetString("server.idle_timeout"))
	if err != nil {
		return nil, fmt.Errorf("idle timeout: %w", err)
	}
	drop, err := parseDuration(v.GetString("server.drop_duration"))
	if err != nil {
		return nil, fmt.Errorf("drop duration: %w", err)
	}

	addr := v.GetString("server.addr")
	// hosting platforms hand out PORT and expect it to win over ADDR
	if port := strings.TrimSpace(v.GetString("server.port")); port != "" {
		addr = ":" + port
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:         addr,
			IdleTimeout:  idle,
			DropDuration: drop,
		},
		Game: GameConfig{
			Columns:         v.GetInt("game.columns"),
			Rows:            v.GetInt("game.rows"),
			StartColumn:     v.GetInt("game.start_column"),
			TokensPerPlayer: v.GetInt("game.tokens_per_player"),
			Player1Name:     v.GetString("game.player1_name"),
			Player1Color:    v.GetString("game.player1_color"),
			Player2Name:     v.GetString("game.player2_name"),
			Player2Color:    v.GetString("game.player2_color"),
		},
		Database: DatabaseConfig{URL: v.GetString("database.url")},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetStringSlice("kafka.brokers")),
			Topic:   v.GetString("kafka.topic"),
			GroupID: v.GetString("kafka.group_id"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}
	if cfg.Game.StartColumn < 0 {
		cfg.Game.StartColumn = cfg.Game.Columns / 2
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Game.Columns <= 0 || c.Game.Rows <= 0 {
		errs = append(errs, fmt.Errorf("board must be at least 1x1, got %dx%d", c.Game.Columns, c.Game.Rows))
	}
	if c.Game.StartColumn >= c.Game.Columns {
		errs = append(errs, fmt.Errorf("start column %d outside board of %d columns", c.Game.StartColumn, c.Game.Columns))
	}
	if c.Game.TokensPerPlayer < 0 {
		errs = append(errs, fmt.Errorf("tokens per player must not be negative, got %d", c.Game.TokensPerPlayer))
	}
	if c.Server.DropDuration < 0 {
		errs = append(errs, errors.New("drop duration must not be negative"))
	}
	return errors.Join(errs...)
}

// EngineOptions turns the game section into engine options.
func (g GameConfig) EngineOptions(logger *zap.Logger) game.Options {
	return game.Options{
		Columns: g.Columns,
		Rows:    g.Rows,
		Players: [2]game.PlayerOptions{
			{Name: g.Player1Name, Color: g.Player1Color},
			{Name: g.Player2Name, Color: g.Player2Color},
		},
		TokensPerPlayer: g.TokensPerPlayer,
		StartColumn:     g.StartColumn,
		Logger:          logger,
	}
}

// parseDuration accepts Go durations ("30s") or a bare number of seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// splitList flattens YAML lists and comma separated env values.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
