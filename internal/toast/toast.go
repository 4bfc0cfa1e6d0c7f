// Package toast holds the per-session notification state shown in the page's
// toast viewport. A Manager owns an ordered, newest-first list of toasts, each
// removed either by an explicit Dismiss or by its own auto-dismiss timer.
package toast

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Variant string

const (
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
	VariantInfo    Variant = "info"
)

// DefaultDuration applies when Show is called with a non-positive duration.
const DefaultDuration = 4 * time.Second

type Toast struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Variant   Variant   `json:"variant"`
	CreatedAt time.Time `json:"created_at"`
}

type entry struct {
	toast Toast
	timer *time.Timer
}

// Manager is safe for concurrent use. Listeners registered with Subscribe are
// called in mutation order and must not mutate the Manager themselves.
type Manager struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	entries   []*entry
	closed    bool
	listeners map[int]func([]Toast)
	nextSub   int

	newID           func() string
	defaultDuration time.Duration
	logger          *slog.Logger
}

type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithIDFunc overrides identifier generation.
func WithIDFunc(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

func WithDefaultDuration(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.defaultDuration = d
		}
	}
}

func New(opts ...Option) *Manager {
	m := &Manager{
		listeners:       make(map[int]func([]Toast)),
		newID:           NewID,
		defaultDuration: DefaultDuration,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewID combines a nanosecond timestamp with random bits.
func NewID() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + uuid.NewString()[:8]
}

// Show prepends a toast and schedules its removal after d.
func (m *Manager) Show(message string, variant Variant, d time.Duration) string {
	id := m.newID()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return id
	}
	if d <= 0 {
		d = m.defaultDuration
	}
	if variant == "" {
		variant = VariantInfo
	}

	e := &entry{toast: Toast{
		ID:        id,
		Message:   message,
		Variant:   variant,
		CreatedAt: time.Now().UTC(),
	}}
	e.timer = time.AfterFunc(d, func() { m.expire(e) })
	m.entries = append([]*entry{e}, m.entries...)
	m.logger.Debug("toast shown", "id", id, "variant", variant, "duration", d)
	m.publishLocked()
	return id
}

func (m *Manager) Success(message string, d time.Duration) string {
	return m.Show(message, VariantSuccess, d)
}

func (m *Manager) Error(message string, d time.Duration) string {
	return m.Show(message, VariantError, d)
}

func (m *Manager) Info(message string, d time.Duration) string {
	return m.Show(message, VariantInfo, d)
}

// Dismiss removes the toast with id. Unknown or already removed ids are ignored.
func (m *Manager) Dismiss(id string) {
	m.mu.Lock()
	for i, e := range m.entries {
		if e.toast.ID != id {
			continue
		}
		e.timer.Stop()
		m.entries = append(m.entries[:i:i], m.entries[i+1:]...)
		m.publishLocked()
		return
	}
	m.mu.Unlock()
}

// expire runs on the timer goroutine. It only removes the exact entry that
// scheduled it, so a late timer cannot touch anything else.
func (m *Manager) expire(target *entry) {
	m.mu.Lock()
	for i, e := range m.entries {
		if e != target {
			continue
		}
		m.entries = append(m.entries[:i:i], m.entries[i+1:]...)
		m.publishLocked()
		return
	}
	m.mu.Unlock()
}

// Clear stops every pending timer and empties the list.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.stopAllLocked()
	m.publishLocked()
}

// Close clears the Manager and turns later calls into no-ops.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.stopAllLocked()
	m.publishLocked()

	m.mu.Lock()
	m.listeners = make(map[int]func([]Toast))
	m.mu.Unlock()
}

func (m *Manager) stopAllLocked() {
	for _, e := range m.entries {
		e.timer.Stop()
	}
	m.entries = nil
}

// Resend publishes the current snapshot to every listener without changing
// anything. Newly attached listeners use it to catch up in order.
func (m *Manager) Resend() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.publishLocked()
}

// Toasts returns a newest-first snapshot.
func (m *Manager) Toasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Subscribe registers fn to receive a snapshot after every change.
func (m *Manager) Subscribe(fn func([]Toast)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) snapshotLocked() []Toast {
	out := make([]Toast, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.toast
	}
	return out
}

// publishLocked must be called with mu held; it releases mu. notifyMu is
// taken before mu is released so listeners observe changes in order.
func (m *Manager) publishLocked() {
	snap := m.snapshotLocked()
	ls := make([]func([]Toast), 0, len(m.listeners))
	for _, fn := range m.listeners {
		ls = append(ls, fn)
	}
	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()

	for _, fn := range ls {
		fn(snap)
	}
}
