package game

// Player holds identity, the token supply and the turn flag.
type Player struct {
	Name   string
	ID     int
	Color  string
	active bool
	token  *Token
	// remaining counts tokens not yet spawned; negative means unlimited.
	remaining int
	spawned   int
}

// NewPlayer creates a player with a supply of tokens. A supply of zero or
// less means the player never runs out.
func NewPlayer(name string, id int, color string, tokens int) *Player {
	remaining := tokens
	if tokens <= 0 {
		remaining = -1
	}
	return &Player{Name: name, ID: id, Color: color, remaining: remaining}
}

func (p *Player) Active() bool { return p.active }

// ActiveToken returns the player's current token, which may already be
// dropped if no replacement has been activated yet.
func (p *Player) ActiveToken() *Token { return p.token }

// Remaining reports how many tokens can still be spawned, -1 when unlimited.
func (p *Player) Remaining() int { return p.remaining }

// CheckTokens reports whether the player has a token to play next.
func (p *Player) CheckTokens() bool {
	if p.token != nil && !p.token.dropped {
		return true
	}
	return p.remaining != 0
}

// activateToken returns the undropped active token, spawning a fresh one at
// column when the previous token has been played.
func (p *Player) activateToken(column int) *Token {
	if p.token != nil && !p.token.dropped {
		return p.token
	}
	if p.remaining == 0 {
		return nil
	}
	if p.remaining > 0 {
		p.remaining--
	}
	p.spawned++
	p.token = &Token{ID: p.spawned, owner: p, column: column}
	return p.token
}
