package server

import (
	"context"
	"embed"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/JasonP670/4inarow/internal/analytics"
	"github.com/JasonP670/4inarow/internal/game"
	"github.com/JasonP670/4inarow/internal/storage"
)

//go:embed static
var staticFS embed.FS

type Server struct {
	router       *gin.Engine
	manager      *game.Manager
	store        storage.Store
	analytics    *analytics.Producer
	logger       *zap.Logger
	dropDuration time.Duration
	sweepEvery   time.Duration
}

type Config struct {
	Game         game.Options
	IdleTimeout  time.Duration
	DropDuration time.Duration
	Store        storage.Store
	Analytics    *analytics.Producer
	Logger       *zap.Logger
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := cfg.Store
	if store == nil {
		store = storage.NewMemoryStore()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		router:       router,
		store:        store,
		analytics:    cfg.Analytics,
		logger:       logger,
		dropDuration: cfg.DropDuration,
		sweepEvery:   5 * time.Second,
	}
	s.manager = game.NewManager(game.ManagerConfig{
		Options:     cfg.Game,
		IdleTimeout: cfg.IdleTimeout,
		OnDrop:      s.onDrop,
		OnFinish:    s.onFinish,
		Logger:      logger,
	})

	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/leaderboard", s.handleLeaderboard)
	router.GET("/ws", s.handleWS)
	router.GET("/", s.handleIndex)

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down and stops every
// session.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.manager.Sweep(sweepCtx, s.sweepEvery)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		s.manager.CloseAll()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.manager.CloseAll()
	if err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(c *gin.Context) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	rows, err := s.store.GetLeaderboard(c.Request.Context(), 10)
	if err != nil {
		s.logger.Error("leaderboard query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "leaderboard unavailable"})
		return
	}
	if rows == nil {
		rows = []storage.LeaderboardRow{}
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) onDrop(sessionID string, ev game.DropEvent) {
	s.analytics.Publish(context.Background(), analytics.EventTokenDropped, sessionID, map[string]any{
		"sessionId": sessionID,
		"player":    ev.Player,
		"playerId":  ev.PlayerID,
		"column":    ev.Column,
		"row":       ev.Row,
		"move":      ev.Move,
	})
}

func (s *Server) onFinish(sessionID string, res game.Result) {
	status := storage.StatusWon
	if res.Draw {
		status = storage.StatusDraw
	}
	ctx := context.Background()
	err := s.store.SaveGame(ctx, storage.CompletedGame{
		ID:        sessionID,
		Winner:    res.Winner,
		Status:    status,
		Players:   res.Players,
		Moves:     res.Moves,
		StartedAt: res.StartedAt,
		EndedAt:   res.EndedAt,
	})
	if err != nil {
		s.logger.Warn("game not archived", zap.String("session_id", sessionID), zap.Error(err))
	}
	s.analytics.Publish(ctx, analytics.EventGameFinished, sessionID, map[string]any{
		"sessionId": sessionID,
		"winner":    res.Winner,
		"draw":      res.Draw,
		"status":    status,
		"players":   res.Players,
		"moves":     res.Moves,
		"duration":  res.EndedAt.Sub(res.StartedAt).Seconds(),
		"startedAt": res.StartedAt,
		"endedAt":   res.EndedAt,
	})
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
