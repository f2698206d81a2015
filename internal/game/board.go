package game

import "errors"

const (
	DefaultColumns = 7
	DefaultRows    = 6
	runLength      = 4
)

var (
	ErrColumnFull     = errors.New("column is full")
	ErrDoubleMark     = errors.New("space already marked")
	ErrNilToken       = errors.New("mark with nil token")
	ErrNotReady       = errors.New("engine not ready for input")
	ErrGameFinished   = errors.New("game already finished")
	ErrAlreadyStarted = errors.New("game already started")
	ErrUnknownIntent  = errors.New("unknown input intent")
	ErrInvalidOptions = errors.New("invalid game options")
)

// Board is a fixed grid of spaces indexed [column][row]. Row 0 is the top
// of a column; tokens come to rest on the highest-indexed empty row.
type Board struct {
	columns int
	rows    int
	spaces  [][]*Space
}

func NewBoard(columns, rows int) *Board {
	spaces := make([][]*Space, columns)
	for x := 0; x < columns; x++ {
		spaces[x] = make([]*Space, rows)
		for y := 0; y < rows; y++ {
			spaces[x][y] = &Space{Column: x, Row: y}
		}
	}
	return &Board{columns: columns, rows: rows, spaces: spaces}
}

func (b *Board) Columns() int { return b.columns }
func (b *Board) Rows() int    { return b.rows }

// Space returns the space at the given coordinates, or nil when out of bounds.
func (b *Board) Space(column, row int) *Space {
	if column < 0 || column >= b.columns || row < 0 || row >= b.rows {
		return nil
	}
	return b.spaces[column][row]
}

// Column returns the spaces of one column from top to bottom.
func (b *Board) Column(column int) []*Space {
	if column < 0 || column >= b.columns {
		return nil
	}
	return b.spaces[column]
}

func (b *Board) ColumnIsFull(column int) bool {
	for _, space := range b.Column(column) {
		if space.Empty() {
			return false
		}
	}
	return true
}

// FirstEmptySpace resolves where a token dropped into column lands. The scan
// walks the whole column and keeps the last empty space it sees, which is
// the lowest free slot under gravity. It returns nil for a full or invalid
// column.
func (b *Board) FirstEmptySpace(column int) *Space {
	var target *Space
	for _, space := range b.Column(column) {
		if space.Empty() {
			target = space
		}
	}
	return target
}

func (b *Board) Full() bool {
	for x := 0; x < b.columns; x++ {
		if !b.ColumnIsFull(x) {
			return false
		}
	}
	return true
}

// WinningLine rescans the whole board for four aligned spaces owned by owner
// and returns the first run found, or nil.
func (b *Board) WinningLine(owner *Player) []*Space {
	if owner == nil {
		return nil
	}
	owned := func(x, y int) bool {
		return b.spaces[x][y].owner == owner
	}
	run := func(x, y, dx, dy int) []*Space {
		line := make([]*Space, 0, runLength)
		for i := 0; i < runLength; i++ {
			if !owned(x+i*dx, y+i*dy) {
				return nil
			}
			line = append(line, b.spaces[x+i*dx][y+i*dy])
		}
		return line
	}

	// vertical
	for x := 0; x < b.columns; x++ {
		for y := 0; y <= b.rows-runLength; y++ {
			if line := run(x, y, 0, 1); line != nil {
				return line
			}
		}
	}

	// horizontal
	for x := 0; x <= b.columns-runLength; x++ {
		for y := 0; y < b.rows; y++ {
			if line := run(x, y, 1, 0); line != nil {
				return line
			}
		}
	}

	// diagonal, down and to the left
	for x := runLength - 1; x < b.columns; x++ {
		for y := 0; y <= b.rows-runLength; y++ {
			if line := run(x, y, -1, 1); line != nil {
				return line
			}
		}
	}

	// diagonal, up and to the left
	for x := runLength - 1; x < b.columns; x++ {
		for y := runLength - 1; y < b.rows; y++ {
			if line := run(x, y, -1, -1); line != nil {
				return line
			}
		}
	}

	return nil
}

// Grid returns owner ids indexed [column][row], 0 for empty spaces.
func (b *Board) Grid() [][]int {
	grid := make([][]int, b.columns)
	for x := 0; x < b.columns; x++ {
		grid[x] = make([]int, b.rows)
		for y := 0; y < b.rows; y++ {
			if owner := b.spaces[x][y].owner; owner != nil {
				grid[x][y] = owner.ID
			}
		}
	}
	return grid
}

// Space is one cell of the board.
type Space struct {
	Column int
	Row    int
	token  *Token
	owner  *Player
}

func (s *Space) Token() *Token  { return s.token }
func (s *Space) Owner() *Player { return s.owner }
func (s *Space) Empty() bool    { return s.token == nil && s.owner == nil }

// Mark places token in the space. A marked space never changes again.
func (s *Space) Mark(token *Token) error {
	if !s.Empty() {
		return ErrDoubleMark
	}
	if token == nil {
		return ErrNilToken
	}
	s.token = token
	s.owner = token.owner
	token.space = s
	return nil
}
