package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	StatusWon  = "won"
	StatusDraw = "draw"
)

// CompletedGame is the archived outcome of one session. Board state is never
// stored, so a finished game cannot be resumed.
type CompletedGame struct {
	ID        string
	Winner    string
	Status    string
	Players   []string
	Moves     int
	StartedAt time.Time
	EndedAt   time.Time
}

type LeaderboardRow struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
}

type Store interface {
	SaveGame(ctx context.Context, game CompletedGame) error
	GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error)
}

type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresStore(ctx context.Context, url string, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (p *PostgresStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PostgresStore) EnsureTables(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS games (
	id TEXT PRIMARY KEY,
	winner TEXT,
	status TEXT NOT NULL,
	players TEXT[] NOT NULL DEFAULT '{}',
	moves INTEGER NOT NULL DEFAULT 0,
	started_at TIMESTAMPTZ,
	ended_at TIMESTAMPTZ
);
`)
	return err
}

func (p *PostgresStore) SaveGame(ctx context.Context, game CompletedGame) error {
	if p == nil || p.pool == nil {
		return nil
	}
	_, err := p.pool.Exec(ctx, `INSERT INTO games (id, winner, status, players, moves, started_at, ended_at)
VALUES ($1,$2,$3,$4,$5,$6,$7) ON CONFLICT (id) DO NOTHING`,
		game.ID, game.Winner, game.Status, game.Players, game.Moves, game.StartedAt, game.EndedAt)
	if err != nil {
		p.logger.Error("failed to save game", zap.String("game_id", game.ID), zap.Error(err))
		return fmt.Errorf("save game %s: %w", game.ID, err)
	}
	return nil
}

func (p *PostgresStore) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	rows, err := p.pool.Query(ctx, `
SELECT winner, COUNT(*) as wins
FROM games
WHERE winner IS NOT NULL AND winner <> ''
GROUP BY winner
ORDER BY wins DESC, winner
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []LeaderboardRow
	for rows.Next() {
		var row LeaderboardRow
		if err := rows.Scan(&row.Username, &row.Wins); err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	return res, rows.Err()
}

// MemoryStore keeps outcomes for the life of the process. It backs the
// leaderboard when no database is configured.
type MemoryStore struct {
	mu    sync.Mutex
	games map[string]CompletedGame
	wins  map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games: make(map[string]CompletedGame),
		wins:  make(map[string]int),
	}
}

func (m *MemoryStore) SaveGame(_ context.Context, game CompletedGame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[game.ID]; ok {
		return nil
	}
	m.games[game.ID] = game
	if game.Winner != "" {
		m.wins[game.Winner]++
	}
	return nil
}

func (m *MemoryStore) GetLeaderboard(_ context.Context, limit int) ([]LeaderboardRow, error) {
	m.mu.Lock()
	res := make([]LeaderboardRow, 0, len(m.wins))
	for name, wins := range m.wins {
		res = append(res, LeaderboardRow{Username: name, Wins: wins})
	}
	m.mu.Unlock()

	sort.Slice(res, func(i, j int) bool {
		if res[i].Wins != res[j].Wins {
			return res[i].Wins > res[j].Wins
		}
		return res[i].Username < res[j].Username
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}
