package game

import "sync"

// Token is a player's placeable piece. Its column moves freely until the
// token is dropped, after which it is frozen.
type Token struct {
	ID      int
	owner   *Player
	column  int
	dropped bool
	space   *Space
}

func (t *Token) Owner() *Player { return t.owner }
func (t *Token) Column() int    { return t.column }
func (t *Token) Dropped() bool  { return t.dropped }

// Space returns where the token came to rest, or nil before its drop resolved.
func (t *Token) Space() *Space { return t.space }

func (t *Token) Color() string {
	if t.owner == nil {
		return ""
	}
	return t.owner.Color
}

func (t *Token) MoveLeft() {
	if t.dropped || t.column <= 0 {
		return
	}
	t.column--
}

func (t *Token) MoveRight(maxColumns int) {
	if t.dropped || t.column >= maxColumns-1 {
		return
	}
	t.column++
}

// Drop freezes the token and hands the fall to the animator. The returned
// signal fires once the animation reports completion.
func (t *Token) Drop(target *Space, animator Animator) *Signal {
	t.dropped = true
	signal := NewSignal()
	animator.AnimateDrop(t, target, signal.Fire)
	return signal
}

// Signal is a single-shot completion. Fire may be called any number of times
// from any goroutine; Done is closed on the first call.
type Signal struct {
	once sync.Once
	done chan struct{}
}

func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

func (s *Signal) Fire() {
	s.once.Do(func() { close(s.done) })
}

func (s *Signal) Done() <-chan struct{} { return s.done }

func (s *Signal) Fired() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
