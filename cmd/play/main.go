package main

import (
	"context"
	"flag"
	"os"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/JasonP670/4inarow/internal/config"
	"github.com/JasonP670/4inarow/internal/game"
	"github.com/JasonP670/4inarow/internal/logging"
	"github.com/JasonP670/4inarow/internal/terminal"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	step := flag.Duration("step", terminal.DefaultStep, "delay per row while a token falls")
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

	screen, err := tcell.NewScreen()
	if err != nil {
		logger.Fatal("terminal unavailable", zap.Error(err))
	}
	if err := screen.Init(); err != nil {
		logger.Fatal("terminal init failed", zap.Error(err))
	}

	// the screen owns the terminal until Fini, so the engine stays quiet
	opts := cfg.Game.EngineOptions(zap.NewNop())
	engine, err := game.NewEngine(opts, terminal.NewRenderer(screen, *step))
	if err != nil {
		screen.Fini()
		logger.Fatal("invalid game options", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	inputs := make(chan game.Intent, 8)
	go func() {
		defer cancel()
		for {
			switch ev := screen.PollEvent().(type) {
			case nil:
				return
			case *tcell.EventResize:
				screen.Sync()
			case *tcell.EventKey:
				if terminal.Quit(ev) {
					return
				}
				if in, ok := terminal.KeyIntent(ev); ok {
					select {
					case inputs <- in:
					default:
					}
				}
			}
		}
	}()

	runErr := engine.Run(ctx, inputs)
	if engine.State().Terminal() {
		// keep the final board up until the player quits
		<-ctx.Done()
	}
	screen.Fini()

	switch {
	case runErr != nil && ctx.Err() == nil:
		logger.Error("game aborted", zap.Error(runErr))
		os.Exit(1)
	case engine.State().Terminal():
		snap := engine.Snapshot()
		logger.Info("game over",
			zap.String("result", snap.Message),
			zap.Int("moves", snap.Moves),
			zap.Any("grid", snap.Grid),
		)
	default:
		logger.Info("game abandoned", zap.Int("moves", engine.Moves()))
	}
}
