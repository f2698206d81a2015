package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type State int

const (
	Setup State = iota
	AwaitingInput
	Resolving
	GameOver
	Draw
)

func (s State) String() string {
	switch s {
	case Setup:
		return "setup"
	case AwaitingInput:
		return "awaiting_input"
	case Resolving:
		return "resolving"
	case GameOver:
		return "game_over"
	case Draw:
		return "draw"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further input will ever be processed.
func (s State) Terminal() bool {
	return s == GameOver || s == Draw
}

type PlayerOptions struct {
	Name  string
	Color string
}

type Options struct {
	Columns int
	Rows    int
	Players [2]PlayerOptions
	// TokensPerPlayer bounds each player's supply; zero means unlimited.
	TokensPerPlayer int
	StartColumn     int
	Logger          *zap.Logger
	Hooks           Hooks
}

func DefaultOptions() Options {
	return Options{
		Columns: DefaultColumns,
		Rows:    DefaultRows,
		Players: [2]PlayerOptions{
			{Name: "Player 1", Color: "#e15258"},
			{Name: "Player 2", Color: "#e59a13"},
		},
		StartColumn: DefaultColumns / 2,
	}
}

// DropEvent describes a drop after it has been committed to the board.
type DropEvent struct {
	Player   string
	PlayerID int
	Column   int
	Row      int
	Move     int
}

// Result is the terminal outcome of a game.
type Result struct {
	Winner    string
	WinnerID  int
	Draw      bool
	Message   string
	Moves     int
	Players   []string
	StartedAt time.Time
	EndedAt   time.Time
}

// Snapshot is a serialisable view of an engine between inputs.
type Snapshot struct {
	Columns      int     `json:"columns"`
	Rows         int     `json:"rows"`
	Grid         [][]int `json:"grid"`
	State        string  `json:"state"`
	Ready        bool    `json:"ready"`
	ActivePlayer int     `json:"activePlayer"`
	TokenColumn  int     `json:"tokenColumn"`
	Winner       string  `json:"winner,omitempty"`
	Message      string  `json:"message,omitempty"`
	Moves        int     `json:"moves"`
}

type Hooks struct {
	OnDrop   func(DropEvent)
	OnFinish func(Result)
}

type pendingDrop struct {
	player *Player
	token  *Token
	target *Space
	signal *Signal
}

// Engine sequences turns, resolves drops and decides when the game ends.
// It is not safe for concurrent use; Run serialises input and drop
// completions on one goroutine.
type Engine struct {
	board       *Board
	players     [2]*Player
	renderer    Renderer
	logger      *zap.Logger
	hooks       Hooks
	startColumn int

	state   State
	ready   bool
	pending *pendingDrop
	winner  *Player
	line    []*Space
	message string
	moves   int

	startedAt time.Time
	endedAt   time.Time
}

func NewEngine(opts Options, renderer Renderer) (*Engine, error) {
	if opts.Columns <= 0 || opts.Rows <= 0 {
		return nil, fmt.Errorf("%w: board must be at least 1x1, got %dx%d", ErrInvalidOptions, opts.Columns, opts.Rows)
	}
	if opts.StartColumn < 0 || opts.StartColumn >= opts.Columns {
		return nil, fmt.Errorf("%w: start column %d outside 0..%d", ErrInvalidOptions, opts.StartColumn, opts.Columns-1)
	}
	if renderer == nil {
		return nil, fmt.Errorf("%w: renderer required", ErrInvalidOptions)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultOptions().Players
	e := &Engine{
		board:       NewBoard(opts.Columns, opts.Rows),
		renderer:    renderer,
		logger:      logger,
		hooks:       opts.Hooks,
		startColumn: opts.StartColumn,
	}
	for i := range e.players {
		po := opts.Players[i]
		if po.Name == "" {
			po.Name = defaults[i].Name
		}
		if po.Color == "" {
			po.Color = defaults[i].Color
		}
		e.players[i] = NewPlayer(po.Name, i+1, po.Color, opts.TokensPerPlayer)
		e.players[i].activateToken(e.startColumn)
	}
	e.players[0].active = true
	return e, nil
}

func (e *Engine) Board() *Board         { return e.board }
func (e *Engine) Players() [2]*Player   { return e.players }
func (e *Engine) State() State          { return e.state }
func (e *Engine) Ready() bool           { return e.ready }
func (e *Engine) Winner() *Player       { return e.winner }
func (e *Engine) WinningLine() []*Space { return e.line }
func (e *Engine) Message() string       { return e.message }
func (e *Engine) Moves() int            { return e.moves }

func (e *Engine) ActivePlayer() *Player {
	for _, p := range e.players {
		if p.active {
			return p
		}
	}
	return nil
}

func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Columns:     e.board.Columns(),
		Rows:        e.board.Rows(),
		Grid:        e.board.Grid(),
		State:       e.state.String(),
		Ready:       e.ready,
		TokenColumn: -1,
		Message:     e.message,
		Moves:       e.moves,
	}
	if p := e.ActivePlayer(); p != nil {
		snap.ActivePlayer = p.ID
		if t := p.ActiveToken(); t != nil && !t.Dropped() {
			snap.TokenColumn = t.Column()
		}
	}
	if e.winner != nil {
		snap.Winner = e.winner.Name
	}
	return snap
}

// Pending returns a channel closed when the in-flight drop completes, or nil
// when no drop is in flight.
func (e *Engine) Pending() <-chan struct{} {
	if e.pending == nil {
		return nil
	}
	return e.pending.signal.Done()
}

// Start draws the board and the first token and opens the engine for input.
func (e *Engine) Start() error {
	if e.state != Setup {
		return ErrAlreadyStarted
	}
	e.startedAt = time.Now()
	e.renderer.RenderBoard(e.board)
	e.renderer.RenderToken(e.ActivePlayer().ActiveToken())
	e.state = AwaitingInput
	e.ready = true
	e.logger.Debug("game started",
		zap.Int("columns", e.board.Columns()),
		zap.Int("rows", e.board.Rows()),
		zap.String("first_player", e.ActivePlayer().Name),
	)
	return nil
}

// HandleInput applies one intent. A non-nil error means the input had no
// effect on the game.
func (e *Engine) HandleInput(in Intent) error {
	if e.state.Terminal() {
		return ErrGameFinished
	}
	if !e.ready {
		return ErrNotReady
	}
	token := e.ActivePlayer().ActiveToken()
	switch in {
	case MoveLeft:
		token.MoveLeft()
		e.renderer.RenderToken(token)
	case MoveRight:
		token.MoveRight(e.board.Columns())
		e.renderer.RenderToken(token)
	case Drop:
		return e.playToken(token)
	default:
		return ErrUnknownIntent
	}
	return nil
}

func (e *Engine) playToken(token *Token) error {
	target := e.board.FirstEmptySpace(token.Column())
	if target == nil {
		return ErrColumnFull
	}
	e.ready = false
	e.state = Resolving
	e.pending = &pendingDrop{
		player: e.ActivePlayer(),
		token:  token,
		target: target,
	}
	e.pending.signal = token.Drop(target, e.renderer)
	_, err := e.Settle()
	return err
}

// Settle resolves the in-flight drop if its animation has completed. It
// never blocks and reports whether a drop was resolved.
func (e *Engine) Settle() (bool, error) {
	if e.pending == nil || !e.pending.signal.Fired() {
		return false, nil
	}
	drop := e.pending
	e.pending = nil
	return true, e.updateGameState(drop)
}

func (e *Engine) updateGameState(drop *pendingDrop) error {
	if err := drop.target.Mark(drop.token); err != nil {
		e.logger.Error("drop resolved against stale board",
			zap.Int("column", drop.target.Column),
			zap.Int("row", drop.target.Row),
			zap.Error(err),
		)
		return fmt.Errorf("mark column %d row %d: %w", drop.target.Column, drop.target.Row, err)
	}
	e.moves++
	if e.hooks.OnDrop != nil {
		e.hooks.OnDrop(DropEvent{
			Player:   drop.player.Name,
			PlayerID: drop.player.ID,
			Column:   drop.target.Column,
			Row:      drop.target.Row,
			Move:     e.moves,
		})
	}

	if e.CheckForWin(drop.target) {
		e.winner = drop.target.Owner()
		e.line = e.board.WinningLine(e.winner)
		e.gameOver(GameOver, fmt.Sprintf("%s wins!", e.winner.Name))
		return nil
	}
	if e.board.Full() {
		e.gameOver(Draw, "It's a draw!")
		return nil
	}

	e.switchPlayers()
	next := e.ActivePlayer()
	if !next.CheckTokens() {
		e.gameOver(Draw, fmt.Sprintf("%s has no tokens left. It's a draw!", next.Name))
		return nil
	}
	e.renderer.RenderToken(next.activateToken(e.startColumn))
	e.state = AwaitingInput
	e.ready = true
	return nil
}

// CheckForWin reports whether the owner of target has four in a row anywhere
// on the board.
func (e *Engine) CheckForWin(target *Space) bool {
	if target == nil {
		return false
	}
	return e.board.WinningLine(target.Owner()) != nil
}

func (e *Engine) switchPlayers() {
	for _, p := range e.players {
		p.active = !p.active
	}
}

func (e *Engine) gameOver(state State, message string) {
	e.state = state
	e.ready = false
	e.message = message
	e.endedAt = time.Now()
	e.renderer.ShowMessage(message)
	e.logger.Info("game finished",
		zap.String("state", state.String()),
		zap.String("message", message),
		zap.Int("moves", e.moves),
	)
	if e.hooks.OnFinish != nil {
		e.hooks.OnFinish(e.result())
	}
}

func (e *Engine) result() Result {
	res := Result{
		Draw:      e.state == Draw,
		Message:   e.message,
		Moves:     e.moves,
		Players:   []string{e.players[0].Name, e.players[1].Name},
		StartedAt: e.startedAt,
		EndedAt:   e.endedAt,
	}
	if e.winner != nil {
		res.Winner = e.winner.Name
		res.WinnerID = e.winner.ID
	}
	return res
}

// Run processes intents until the game ends, the input channel closes or ctx
// is cancelled. Rejected input is dropped; a double mark is fatal and is
// returned.
func (e *Engine) Run(ctx context.Context, inputs <-chan Intent) error {
	if e.state == Setup {
		if err := e.Start(); err != nil {
			return err
		}
	}
	for !e.state.Terminal() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-inputs:
			if !ok {
				return nil
			}
			if err := e.HandleInput(in); err != nil {
				if errors.Is(err, ErrDoubleMark) {
					return err
				}
				e.logger.Debug("input ignored",
					zap.Stringer("intent", in),
					zap.Stringer("state", e.state),
					zap.Error(err),
				)
			}
		case <-e.Pending():
			if _, err := e.Settle(); err != nil {
				return err
			}
		}
	}
	return nil
}
