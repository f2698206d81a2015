package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// recorder is a headless renderer. With manual set, drop completions are held
// until complete is called.
type recorder struct {
	boards   int
	tokens   []int
	drops    []*Space
	messages []string
	manual   bool
	pending  []func()
}

func (r *recorder) RenderBoard(*Board) { r.boards++ }

func (r *recorder) RenderToken(t *Token) { r.tokens = append(r.tokens, t.Column()) }

func (r *recorder) ShowMessage(msg string) { r.messages = append(r.messages, msg) }

func (r *recorder) AnimateDrop(_ *Token, target *Space, done func()) {
	r.drops = append(r.drops, target)
	if r.manual {
		r.pending = append(r.pending, done)
		return
	}
	done()
}

func (r *recorder) complete() {
	if len(r.pending) == 0 {
		return
	}
	done := r.pending[0]
	r.pending = r.pending[1:]
	done()
}

// chanRenderer completes drops inline and reports through channels so it can
// be observed from another goroutine.
type chanRenderer struct {
	tokens   chan int
	messages chan string
}

func newChanRenderer() *chanRenderer {
	return &chanRenderer{
		tokens:   make(chan int, 128),
		messages: make(chan string, 8),
	}
}

func (r *chanRenderer) RenderBoard(*Board) {}

func (r *chanRenderer) RenderToken(t *Token) { r.tokens <- t.Column() }

func (r *chanRenderer) ShowMessage(msg string) { r.messages <- msg }

func (r *chanRenderer) AnimateDrop(_ *Token, _ *Space, done func()) { done() }

func newStartedEngine(t *testing.T, r Renderer) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultOptions(), r)
	require.NoError(t, err)
	require.NoError(t, e.Start())
	return e
}

// dropInto steers the active token to column and drops it.
func dropInto(t *testing.T, e *Engine, column int) error {
	t.Helper()
	token := e.ActivePlayer().ActiveToken()
	for token.Column() > column {
		require.NoError(t, e.HandleInput(MoveLeft))
	}
	for token.Column() < column {
		require.NoError(t, e.HandleInput(MoveRight))
	}
	return e.HandleInput(Drop)
}

func place(t *testing.T, b *Board, p *Player, column, row int) *Space {
	t.Helper()
	space := b.Space(column, row)
	require.NotNil(t, space)
	require.NoError(t, space.Mark(&Token{owner: p, column: column, dropped: true}))
	return space
}
