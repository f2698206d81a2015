package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
)

// Session is one hot-seat game whose engine runs on its own goroutine.
type Session struct {
	ID        string
	StartedAt time.Time

	engine *Engine
	inputs chan Intent
	done   chan struct{}
	cancel context.CancelFunc

	mu          sync.Mutex
	lastInputAt time.Time
	err         error
	finished    bool
}

// Done is closed once the session's engine loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns why the engine loop exited, nil for a game that ran to its end.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Finished reports whether the game reached a win or a draw. It is only
// meaningful once Done is closed.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

func (s *Session) LastInputAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInputAt
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastInputAt = time.Now()
	s.mu.Unlock()
}

type ManagerConfig struct {
	Options     Options
	IdleTimeout time.Duration
	OnDrop      func(sessionID string, ev DropEvent)
	OnFinish    func(sessionID string, res Result)
	Logger      *zap.Logger
}

type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	opts      Options
	idleAfter time.Duration
	onDrop    func(string, DropEvent)
	onFinish  func(string, Result)
	logger    *zap.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions:  make(map[string]*Session),
		opts:      cfg.Options,
		idleAfter: cfg.IdleTimeout,
		onDrop:    cfg.OnDrop,
		onFinish:  cfg.OnFinish,
		logger:    logger,
	}
}

// Create starts a new game drawn through renderer and returns its session.
func (m *Manager) Create(renderer Renderer) (*Session, error) {
	id := uuid.NewString()
	log := m.logger.With(zap.String("session_id", id))

	// hooks leave the engine goroutine through one queue per session so
	// observers see drops and the finish in the order they happened
	events := make(chan func(), 64)
	go func() {
		for fn := range events {
			fn()
		}
	}()

	opts := m.opts
	opts.Logger = log
	opts.Hooks = Hooks{
		OnDrop: func(ev DropEvent) {
			if m.onDrop != nil {
				events <- func() { m.onDrop(id, ev) }
			}
		},
		OnFinish: func(res Result) {
			if m.onFinish != nil {
				events <- func() { m.onFinish(id, res) }
			}
		},
	}
	engine, err := NewEngine(opts, renderer)
	if err != nil {
		close(events)
		return nil, err
	}
	if err := engine.Start(); err != nil {
		close(events)
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	s := &Session{
		ID:          id,
		StartedAt:   now,
		engine:      engine,
		inputs:      make(chan Intent, 8),
		done:        make(chan struct{}),
		cancel:      cancel,
		lastInputAt: now,
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	go func() {
		defer close(s.done)
		defer close(events)
		err := engine.Run(ctx, s.inputs)
		s.mu.Lock()
		s.finished = engine.State().Terminal()
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("engine stopped", zap.Error(err))
			s.err = err
		}
		s.mu.Unlock()
	}()

	log.Info("session created")
	return s, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Send queues an intent for the session's engine. Input that arrives after
// the game ended is rejected with ErrSessionClosed.
func (m *Manager) Send(id string, in Intent) error {
	s, ok := m.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	s.touch()
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.inputs <- in:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// Close stops a session and forgets it.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.cancel()
		m.logger.Info("session closed", zap.String("session_id", id))
	}
}

// SweepIdle closes sessions that saw no input within the idle window.
func (m *Manager) SweepIdle() {
	if m.idleAfter <= 0 {
		return
	}
	now := time.Now()
	var stale []string
	m.mu.RLock()
	for id, s := range m.sessions {
		if now.Sub(s.LastInputAt()) > m.idleAfter {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()
	for _, id := range stale {
		m.logger.Info("session idle, closing", zap.String("session_id", id))
		m.Close(id)
	}
}

// Sweep runs SweepIdle on every tick until ctx is cancelled.
func (m *Manager) Sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepIdle()
		}
	}
}

// CloseAll stops every session, used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.cancel()
	}
}
