package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertOneActive(t *testing.T, e *Engine) {
	t.Helper()
	active := 0
	for _, p := range e.Players() {
		if p.Active() {
			active++
		}
	}
	assert.Equal(t, 1, active, "exactly one player must be active")
}

func TestNewEngineDefaults(t *testing.T) {
	r := &recorder{}
	e, err := NewEngine(DefaultOptions(), r)
	require.NoError(t, err)

	assert.Equal(t, Setup, e.State())
	assert.False(t, e.Ready())
	players := e.Players()
	assert.Equal(t, "Player 1", players[0].Name)
	assert.Equal(t, 1, players[0].ID)
	assert.Equal(t, "#e15258", players[0].Color)
	assert.Equal(t, "Player 2", players[1].Name)
	assert.Equal(t, "#e59a13", players[1].Color)
	assert.Same(t, players[0], e.ActivePlayer())
	assertOneActive(t, e)

	assert.ErrorIs(t, e.HandleInput(Drop), ErrNotReady)
	assert.Zero(t, r.boards)
}

func TestNewEngineValidatesOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Columns = 0
	_, err := NewEngine(opts, &recorder{})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	opts = DefaultOptions()
	opts.StartColumn = 7
	_, err = NewEngine(opts, &recorder{})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = NewEngine(DefaultOptions(), nil)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestStartGame(t *testing.T) {
	r := &recorder{}
	e := newStartedEngine(t, r)

	assert.Equal(t, AwaitingInput, e.State())
	assert.True(t, e.Ready())
	assert.Equal(t, 1, r.boards)
	assert.Equal(t, []int{3}, r.tokens)
	assert.ErrorIs(t, e.Start(), ErrAlreadyStarted)
}

func TestMoveInputsPositionToken(t *testing.T) {
	r := &recorder{}
	e := newStartedEngine(t, r)
	token := e.ActivePlayer().ActiveToken()

	for i := 0; i < 5; i++ {
		require.NoError(t, e.HandleInput(MoveLeft))
	}
	assert.Equal(t, 0, token.Column())
	for i := 0; i < 9; i++ {
		require.NoError(t, e.HandleInput(MoveRight))
	}
	assert.Equal(t, 6, token.Column())
	assert.Equal(t, AwaitingInput, e.State())
	assert.Equal(t, 15, len(r.tokens))
	assert.ErrorIs(t, e.HandleInput(Intent(42)), ErrUnknownIntent)
}

func TestMoveRightTwiceThenDrop(t *testing.T) {
	r := &recorder{}
	e := newStartedEngine(t, r)

	require.NoError(t, e.HandleInput(MoveRight))
	require.NoError(t, e.HandleInput(MoveRight))
	require.NoError(t, e.HandleInput(Drop))

	require.Len(t, r.drops, 1)
	assert.Equal(t, 5, r.drops[0].Column)
	assert.Equal(t, 5, r.drops[0].Row)
	assert.Same(t, e.Players()[0], e.Board().Space(5, 5).Owner())
	assert.True(t, e.Board().Space(3, 5).Empty())
}

func TestDropsStackUnderGravity(t *testing.T) {
	e := newStartedEngine(t, &recorder{})

	for i := 0; i < DefaultRows; i++ {
		require.NoError(t, dropInto(t, e, 0))
		space := e.Board().Space(0, DefaultRows-1-i)
		assert.False(t, space.Empty())
	}
	assert.True(t, e.Board().ColumnIsFull(0))
}

func TestDropIntoFullColumnIsIgnored(t *testing.T) {
	r := &recorder{}
	e := newStartedEngine(t, r)
	for i := 0; i < DefaultRows; i++ {
		require.NoError(t, dropInto(t, e, 3))
	}
	require.True(t, e.Board().ColumnIsFull(3))
	before := e.Board().Grid()
	active := e.ActivePlayer()
	drops := len(r.drops)

	// hovering over a full column is allowed, only the drop is refused
	require.NoError(t, e.HandleInput(MoveLeft))
	require.NoError(t, e.HandleInput(MoveRight))
	assert.ErrorIs(t, e.HandleInput(Drop), ErrColumnFull)

	assert.True(t, e.Ready())
	assert.Equal(t, AwaitingInput, e.State())
	assert.Same(t, active, e.ActivePlayer())
	assert.Equal(t, before, e.Board().Grid())
	assert.Len(t, r.drops, drops)
}

func TestVerticalWinScenario(t *testing.T) {
	r := &recorder{}
	e := newStartedEngine(t, r)

	for i := 0; i < 3; i++ {
		require.NoError(t, dropInto(t, e, 3))
		assertOneActive(t, e)
		require.NoError(t, dropInto(t, e, 2))
		assertOneActive(t, e)
	}
	assert.False(t, e.CheckForWin(e.Board().Space(3, 3)))
	require.NoError(t, dropInto(t, e, 3))

	winner := e.Players()[0]
	assert.Equal(t, GameOver, e.State())
	assert.False(t, e.Ready())
	assert.Same(t, winner, e.Winner())
	assert.True(t, e.CheckForWin(e.Board().Space(3, 2)))
	assert.Equal(t, "Player 1 wins!", e.Message())
	assert.Equal(t, []string{"Player 1 wins!"}, r.messages)
	assert.Equal(t, 7, e.Moves())

	line := e.WinningLine()
	require.Len(t, line, 4)
	for _, s := range line {
		assert.Equal(t, 3, s.Column)
		assert.Same(t, winner, s.Owner())
	}

	before := e.Board().Grid()
	assert.ErrorIs(t, e.HandleInput(Drop), ErrGameFinished)
	assert.ErrorIs(t, e.HandleInput(MoveLeft), ErrGameFinished)
	assert.Equal(t, before, e.Board().Grid())
}

func TestReentrantDropIsIgnored(t *testing.T) {
	r := &recorder{manual: true}
	e := newStartedEngine(t, r)
	first := e.Players()[0]

	require.NoError(t, e.HandleInput(Drop))
	assert.False(t, e.Ready())
	assert.Equal(t, Resolving, e.State())
	assert.NotNil(t, e.Pending())
	assertOneActive(t, e)
	assert.Same(t, first, e.ActivePlayer())

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, e.HandleInput(Drop), ErrNotReady)
		assert.ErrorIs(t, e.HandleInput(MoveLeft), ErrNotReady)
	}
	assert.Len(t, r.drops, 1)
	assert.True(t, e.Board().Space(3, 5).Empty())
	assert.True(t, e.Board().Space(3, 4).Empty())

	settled, err := e.Settle()
	require.NoError(t, err)
	assert.False(t, settled, "nothing settles before the animation completes")

	r.complete()
	settled, err = e.Settle()
	require.NoError(t, err)
	assert.True(t, settled)
	assert.Nil(t, e.Pending())

	assert.Same(t, first, e.Board().Space(3, 5).Owner())
	assert.True(t, e.Board().Space(3, 4).Empty())
	assert.True(t, e.Ready())
	assert.Equal(t, AwaitingInput, e.State())
	assert.Same(t, e.Players()[1], e.ActivePlayer())
	assertOneActive(t, e)
}

func TestDoubleMarkIsFatal(t *testing.T) {
	r := &recorder{manual: true}
	e := newStartedEngine(t, r)

	require.NoError(t, e.HandleInput(Drop))
	target := r.drops[0]
	intruder := e.Players()[1]
	require.NoError(t, target.Mark(&Token{owner: intruder, column: target.Column}))

	r.complete()
	_, err := e.Settle()
	assert.ErrorIs(t, err, ErrDoubleMark)
	assert.Same(t, intruder, target.Owner())
	assert.False(t, e.Ready())
	assert.Equal(t, Resolving, e.State())
}

func TestDrawWhenBoardFills(t *testing.T) {
	opts := DefaultOptions()
	opts.Columns, opts.Rows, opts.StartColumn = 3, 3, 1
	r := &recorder{}
	e, err := NewEngine(opts, r)
	require.NoError(t, err)
	require.NoError(t, e.Start())

	for _, col := range []int{0, 0, 0, 1, 1, 1, 2, 2} {
		require.NoError(t, dropInto(t, e, col))
		assert.Equal(t, AwaitingInput, e.State())
	}
	require.NoError(t, dropInto(t, e, 2))

	assert.Equal(t, Draw, e.State())
	assert.True(t, e.State().Terminal())
	assert.Nil(t, e.Winner())
	assert.Equal(t, "It's a draw!", e.Message())
	assert.Equal(t, []string{"It's a draw!"}, r.messages)
	assert.ErrorIs(t, e.HandleInput(Drop), ErrGameFinished)
}

func TestDrawWhenTokensRunOut(t *testing.T) {
	opts := DefaultOptions()
	opts.TokensPerPlayer = 1
	r := &recorder{}
	e, err := NewEngine(opts, r)
	require.NoError(t, err)
	require.NoError(t, e.Start())

	require.NoError(t, dropInto(t, e, 0))
	assert.Equal(t, AwaitingInput, e.State())
	require.NoError(t, dropInto(t, e, 1))

	assert.Equal(t, Draw, e.State())
	assert.Equal(t, "Player 1 has no tokens left. It's a draw!", e.Message())
	assertOneActive(t, e)
}

func TestHooksObserveDropsAndOutcome(t *testing.T) {
	var drops []DropEvent
	var results []Result
	opts := DefaultOptions()
	opts.Players[0].Name = "Ada"
	opts.Hooks = Hooks{
		OnDrop:   func(ev DropEvent) { drops = append(drops, ev) },
		OnFinish: func(res Result) { results = append(results, res) },
	}
	e, err := NewEngine(opts, &recorder{})
	require.NoError(t, err)
	require.NoError(t, e.Start())

	for i := 0; i < 3; i++ {
		require.NoError(t, dropInto(t, e, 3))
		require.NoError(t, dropInto(t, e, 2))
	}
	require.NoError(t, dropInto(t, e, 3))

	require.Len(t, drops, 7)
	assert.Equal(t, DropEvent{Player: "Ada", PlayerID: 1, Column: 3, Row: 5, Move: 1}, drops[0])
	assert.Equal(t, DropEvent{Player: "Player 2", PlayerID: 2, Column: 2, Row: 5, Move: 2}, drops[1])

	require.Len(t, results, 1)
	res := results[0]
	assert.Equal(t, "Ada", res.Winner)
	assert.Equal(t, 1, res.WinnerID)
	assert.False(t, res.Draw)
	assert.Equal(t, "Ada wins!", res.Message)
	assert.Equal(t, 7, res.Moves)
	assert.Equal(t, []string{"Ada", "Player 2"}, res.Players)
	assert.False(t, res.EndedAt.Before(res.StartedAt))
}

// asyncRenderer completes drops from another goroutine, like a real animation.
type asyncRenderer struct {
	*chanRenderer
}

func (r asyncRenderer) AnimateDrop(_ *Token, _ *Space, done func()) {
	go func() {
		time.Sleep(time.Millisecond)
		done()
	}()
}

func TestRunLoopWithAsyncDrops(t *testing.T) {
	r := asyncRenderer{newChanRenderer()}
	e, err := NewEngine(DefaultOptions(), r)
	require.NoError(t, err)

	inputs := make(chan Intent)
	errc := make(chan error, 1)
	go func() { errc <- e.Run(context.Background(), inputs) }()

	waitToken := func() int {
		select {
		case col := <-r.tokens:
			return col
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for token render")
		}
		return -1
	}
	assert.Equal(t, 3, waitToken())

	// player 1 stacks column 3, player 2 steps left into column 2
	for i := 0; i < 3; i++ {
		inputs <- Drop
		assert.Equal(t, 3, waitToken())
		inputs <- MoveLeft
		assert.Equal(t, 2, waitToken())
		inputs <- Drop
		assert.Equal(t, 3, waitToken())
	}
	inputs <- Drop

	select {
	case msg := <-r.messages:
		assert.Equal(t, "Player 1 wins!", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for game over")
	}
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run loop did not exit")
	}
	assert.Equal(t, GameOver, e.State())
}

func TestRunStopsOnCancel(t *testing.T) {
	e, err := NewEngine(DefaultOptions(), newChanRenderer())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.Run(ctx, make(chan Intent)), context.Canceled)
	assert.Equal(t, AwaitingInput, e.State())
}

func TestSnapshotTracksPlay(t *testing.T) {
	e := newStartedEngine(t, &recorder{})

	snap := e.Snapshot()
	assert.Equal(t, 7, snap.Columns)
	assert.Equal(t, 6, snap.Rows)
	assert.Equal(t, "awaiting_input", snap.State)
	assert.True(t, snap.Ready)
	assert.Equal(t, 1, snap.ActivePlayer)
	assert.Equal(t, 3, snap.TokenColumn)

	require.NoError(t, dropInto(t, e, 3))
	snap = e.Snapshot()
	assert.Equal(t, 1, snap.Grid[3][5])
	assert.Equal(t, 2, snap.ActivePlayer)
	assert.Equal(t, 1, snap.Moves)

	for i := 0; i < 3; i++ {
		require.NoError(t, dropInto(t, e, 2))
		require.NoError(t, dropInto(t, e, 3))
	}
	snap = e.Snapshot()
	assert.Equal(t, "game_over", snap.State)
	assert.False(t, snap.Ready)
	assert.Equal(t, "Player 1", snap.Winner)
	assert.Equal(t, "Player 1 wins!", snap.Message)
	assert.Equal(t, -1, snap.TokenColumn)
}
