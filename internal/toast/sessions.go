package toast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultSessionTTL = 30 * time.Minute
	defaultSweepEvery = time.Minute
)

// Session is one browser's UI session. Its Manager lives until the session
// ends, at which point every pending timer is cancelled. Hub receives a
// snapshot after every change to Toasts.
type Session struct {
	ID     string
	Toasts *Manager
	Hub    *Hub

	mu       sync.Mutex
	lastSeen time.Time
	holds    int
	onEnd    []func()
	ended    bool
}

// OnEnd registers fn to run when the session is torn down. If the session
// has already ended fn runs immediately.
func (s *Session) OnEnd(fn func()) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		fn()
		return
	}
	s.onEnd = append(s.onEnd, fn)
	s.mu.Unlock()
}

// Hold keeps the session alive while a long-lived connection uses it.
func (s *Session) Hold() (release func()) {
	s.mu.Lock()
	s.holds++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.holds--
			s.lastSeen = time.Now()
			s.mu.Unlock()
		})
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen), s.holds > 0
}

func (s *Session) end() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	hooks := s.onEnd
	s.onEnd = nil
	s.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
	s.Toasts.Close()
}

// Sessions creates Sessions lazily and tears them down after ttl of inactivity.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session

	ttl     time.Duration
	onStart func(*Session)
	opts    []Option
	logger  *slog.Logger
}

type SessionsConfig struct {
	TTL     time.Duration
	// OnStart runs once for every new session, before it is handed out.
	OnStart func(*Session)
	Logger  *slog.Logger
	Options []Option
}

func NewSessions(cfg SessionsConfig) *Sessions {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultSessionTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Sessions{
		sessions: make(map[string]*Session),
		ttl:      cfg.TTL,
		onStart:  cfg.OnStart,
		opts:     append([]Option{WithLogger(cfg.Logger)}, cfg.Options...),
		logger:   cfg.Logger,
	}
}

// Get returns a live session and marks it as seen.
func (r *Sessions) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		s.touch(time.Now())
	}
	return s, ok
}

// Ensure returns the session for id, creating it (with a fresh id when id is
// unknown or empty) if needed.
func (r *Sessions) Ensure(id string) *Session {
	if s, ok := r.Get(id); ok {
		return s
	}

	s := &Session{
		ID:       uuid.NewString(),
		Toasts:   New(r.opts...),
		Hub:      NewHub(r.logger),
		lastSeen: time.Now(),
	}
	hub := s.Hub
	unsubscribe := s.Toasts.Subscribe(func(ts []Toast) {
		hub.BroadcastJSON(NewSnapshot(ts))
	})
	s.OnEnd(hub.Close)
	s.OnEnd(unsubscribe)
	if r.onStart != nil {
		r.onStart(s)
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()

	r.logger.Debug("session started", "session", s.ID, "sessions", n)
	return s
}

// End tears the session down. Unknown ids are ignored.
func (r *Sessions) End(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.end()
		r.logger.Debug("session ended", "session", id)
	}
}

// Sweep ends every session idle for longer than the ttl and returns how many
// were ended.
func (r *Sessions) Sweep(now time.Time) int {
	var stale []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		idle, held := s.idleSince(now)
		if held || idle < r.ttl {
			continue
		}
		stale = append(stale, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.end()
	}
	if len(stale) > 0 {
		r.logger.Info("expired idle sessions", "count", len(stale))
	}
	return len(stale)
}

// Len returns the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Run sweeps on every tick until ctx is done, then ends all sessions.
func (r *Sessions) Run(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = defaultSweepEvery
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return nil
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// Close ends every session.
func (r *Sessions) Close() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range all {
		s.end()
	}
}
