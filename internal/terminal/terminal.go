// Package terminal draws a game on a tcell screen and maps key events to
// game intents.
package terminal

import (
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/JasonP670/4inarow/internal/game"
)

const (
	cellWidth = 2
	tokenRune = '●'
	emptyRune = '·'
)

// DefaultStep is the per-row fall delay used by the terminal client.
const DefaultStep = 60 * time.Millisecond

// Renderer implements game.Renderer. Each call redraws the whole frame from
// the board it last saw, so spaces marked between calls show up on the next
// one.
type Renderer struct {
	mu      sync.Mutex
	screen  tcell.Screen
	step    time.Duration
	left    int
	top     int
	board   *game.Board
	hover   *game.Token
	falling *fallingToken
	message string
}

type fallingToken struct {
	color  tcell.Color
	column int
	row    int
}

// NewRenderer draws onto screen. step is the delay between rows of a falling
// token; zero or less completes drops immediately.
func NewRenderer(screen tcell.Screen, step time.Duration) *Renderer {
	return &Renderer{screen: screen, step: step, left: 1, top: 1}
}

func (r *Renderer) RenderBoard(b *game.Board) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.board = b
	r.message = ""
	r.draw()
}

func (r *Renderer) RenderToken(t *game.Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hover = t
	r.draw()
}

func (r *Renderer) ShowMessage(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hover = nil
	r.message = message
	r.draw()
}

// AnimateDrop walks the token down its column one row per step and calls
// done once it reaches target.
func (r *Renderer) AnimateDrop(t *game.Token, target *game.Space, done func()) {
	r.mu.Lock()
	r.hover = nil
	r.falling = &fallingToken{color: tcell.GetColor(t.Color()), column: target.Column, row: -1}
	r.draw()
	r.mu.Unlock()

	if r.step <= 0 {
		r.land(done)
		return
	}
	go func() {
		ticker := time.NewTicker(r.step)
		defer ticker.Stop()
		for row := 0; row <= target.Row; row++ {
			<-ticker.C
			r.mu.Lock()
			r.falling.row = row
			r.draw()
			r.mu.Unlock()
		}
		r.land(done)
	}()
}

func (r *Renderer) land(done func()) {
	r.mu.Lock()
	r.falling = nil
	r.mu.Unlock()
	done()
}

// draw must be called with mu held.
func (r *Renderer) draw() {
	r.screen.Clear()
	if r.board == nil {
		r.screen.Show()
		return
	}
	base := tcell.StyleDefault

	if r.hover != nil {
		r.put(r.hover.Column(), -1, tokenRune, base.Foreground(tcell.GetColor(r.hover.Color())))
	}
	for row := 0; row < r.board.Rows(); row++ {
		for col := 0; col < r.board.Columns(); col++ {
			space := r.board.Space(col, row)
			if owner := space.Owner(); owner != nil {
				r.put(col, row, tokenRune, base.Foreground(tcell.GetColor(owner.Color)))
				continue
			}
			r.put(col, row, emptyRune, base.Foreground(tcell.ColorGray))
		}
	}
	if r.falling != nil && r.falling.row >= 0 {
		r.put(r.falling.column, r.falling.row, tokenRune, base.Foreground(r.falling.color))
	}
	if r.message != "" {
		r.text(r.left, r.top+r.board.Rows()+2, r.message, base.Bold(true))
	}
	r.screen.Show()
}

// put draws at a board coordinate; row -1 is the hover line above the board.
func (r *Renderer) put(col, row int, ch rune, style tcell.Style) {
	x := r.left + col*cellWidth
	y := r.top + 1 + row
	r.screen.SetContent(x, y, ch, nil, style)
}

func (r *Renderer) text(x, y int, s string, style tcell.Style) {
	for _, ch := range s {
		r.screen.SetContent(x, y, ch, nil, style)
		x++
	}
}

// KeyIntent maps a key press to a game intent.
func KeyIntent(ev *tcell.EventKey) (game.Intent, bool) {
	switch ev.Key() {
	case tcell.KeyLeft:
		return game.MoveLeft, true
	case tcell.KeyRight:
		return game.MoveRight, true
	case tcell.KeyDown, tcell.KeyEnter:
		return game.Drop, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'a', 'h':
			return game.MoveLeft, true
		case 'd', 'l':
			return game.MoveRight, true
		case ' ', 's', 'j':
			return game.Drop, true
		}
	}
	return 0, false
}

// Quit reports whether ev asks to leave the game.
func Quit(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q'
	}
	return false
}
