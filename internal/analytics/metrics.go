package analytics

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Metrics struct {
	mu           sync.Mutex
	winnerCounts map[string]int
	durations    []float64
	moves        []int
	gamesPerDay  map[string]int
	gamesPerHour map[string]int
	playerGames  map[string]int
	drops        int
	draws        int
	totalGames   int
}

// Summary is a point-in-time copy of the aggregates.
type Summary struct {
	TotalGames      int
	Draws           int
	Drops           int
	AverageDuration float64
	AverageMoves    float64
	Winners         map[string]int
	GamesPerDay     map[string]int
	GamesPerHour    map[string]int
	PlayerGames     map[string]int
}

func NewMetrics() *Metrics {
	return &Metrics{
		winnerCounts: make(map[string]int),
		gamesPerDay:  make(map[string]int),
		gamesPerHour: make(map[string]int),
		playerGames:  make(map[string]int),
	}
}

// Record folds one event into the aggregates and reports whether it was used.
func (m *Metrics) Record(e Event) bool {
	switch e.Event {
	case EventGameFinished:
		m.recordGameFinished(e.Payload, e.Timestamp)
	case EventTokenDropped:
		m.mu.Lock()
		m.drops++
		m.mu.Unlock()
	default:
		return false
	}
	return true
}

func (m *Metrics) recordGameFinished(payload map[string]any, timestamp time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalGames++

	if winner, ok := payload["winner"].(string); ok && winner != "" {
		m.winnerCounts[winner]++
	}
	if draw, ok := payload["draw"].(bool); ok && draw {
		m.draws++
	}
	if duration, ok := payload["duration"].(float64); ok {
		m.durations = append(m.durations, duration)
	}
	if moves, ok := payload["moves"].(float64); ok {
		m.moves = append(m.moves, int(moves))
	}

	m.gamesPerDay[timestamp.Format("2006-01-02")]++
	m.gamesPerHour[timestamp.Format("2006-01-02 15:00")]++

	if players, ok := payload["players"].([]any); ok {
		for _, p := range players {
			if name, ok := p.(string); ok && name != "" {
				m.playerGames[name]++
			}
		}
	}
}

func (m *Metrics) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Summary{
		TotalGames:   m.totalGames,
		Draws:        m.draws,
		Drops:        m.drops,
		Winners:      copyCounts(m.winnerCounts),
		GamesPerDay:  copyCounts(m.gamesPerDay),
		GamesPerHour: copyCounts(m.gamesPerHour),
		PlayerGames:  copyCounts(m.playerGames),
	}
	if len(m.durations) > 0 {
		sum := 0.0
		for _, d := range m.durations {
			sum += d
		}
		s.AverageDuration = sum / float64(len(m.durations))
	}
	if len(m.moves) > 0 {
		sum := 0
		for _, n := range m.moves {
			sum += n
		}
		s.AverageMoves = float64(sum) / float64(len(m.moves))
	}
	return s
}

func (m *Metrics) Log(logger *zap.Logger) {
	s := m.Summary()
	logger.Info("analytics summary",
		zap.Int("total_games", s.TotalGames),
		zap.Int("draws", s.Draws),
		zap.Int("drops", s.Drops),
		zap.Float64("avg_duration_seconds", s.AverageDuration),
		zap.Float64("avg_moves", s.AverageMoves),
		zap.Any("winners", s.Winners),
		zap.Any("games_per_day", s.GamesPerDay),
		zap.Any("games_per_hour", s.GamesPerHour),
		zap.Any("player_games", s.PlayerGames),
	)
}

func copyCounts(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
