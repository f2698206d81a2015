package game

import "strings"

// Animator moves a dropping token to its target and calls done exactly once
// when the fall is over.
type Animator interface {
	AnimateDrop(token *Token, target *Space, done func())
}

// Renderer is the presentation surface the engine draws through.
type Renderer interface {
	Animator
	RenderBoard(board *Board)
	RenderToken(token *Token)
	ShowMessage(message string)
}

type Intent int

const (
	MoveLeft Intent = iota + 1
	MoveRight
	Drop
)

func (i Intent) String() string {
	switch i {
	case MoveLeft:
		return "move-left"
	case MoveRight:
		return "move-right"
	case Drop:
		return "drop"
	default:
		return "unknown"
	}
}

// ParseKey maps a key name to an intent. Browser key names and short
// aliases are accepted.
func ParseKey(key string) (Intent, bool) {
	switch strings.ToLower(key) {
	case "arrowleft", "left", "move-left", "a":
		return MoveLeft, true
	case "arrowright", "right", "move-right", "d":
		return MoveRight, true
	case "arrowdown", "down", "drop", " ", "space", "enter":
		return Drop, true
	}
	return 0, false
}
