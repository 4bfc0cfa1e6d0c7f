// Package netwatch turns connectivity transitions into toasts.
package netwatch

import (
	"sync"
	"time"
)

const (
	MsgOffline = "You're offline. Actions may fail."
	MsgOnline  = "Back online."
)

// Source publishes connectivity transitions.
type Source interface {
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// Notifier is the part of *toast.Manager the Watcher needs.
type Notifier interface {
	Error(message string, d time.Duration) string
	Info(message string, d time.Duration) string
}

// Watcher raises one toast per transition until closed.
type Watcher struct {
	mu          sync.Mutex
	closed      bool
	unsubscribe func()
}

// Watch subscribes to src once. Going offline shows an error toast, coming
// back shows an info toast, both with the notifier's default duration.
func Watch(src Source, n Notifier) *Watcher {
	w := &Watcher{}
	w.unsubscribe = src.Subscribe(func(online bool) {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.closed {
			return
		}
		if online {
			n.Info(MsgOnline, 0)
		} else {
			n.Error(MsgOffline, 0)
		}
	})
	return w
}

// Close unsubscribes. It is safe to call more than once.
func (w *Watcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()
	w.unsubscribe()
}

// Signal is a Source whose state is set by hand. It only publishes changes.
type Signal struct {
	mu        sync.Mutex
	online    bool
	listeners map[int]func(bool)
	next      int
}

// NewSignal returns a Signal starting in the given state.
func NewSignal(online bool) *Signal {
	return &Signal{online: online, listeners: make(map[int]func(bool))}
}

func (s *Signal) Subscribe(fn func(online bool)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Set records the state and reports whether it changed. Listeners run on the
// caller's goroutine.
func (s *Signal) Set(online bool) bool {
	s.mu.Lock()
	if s.online == online {
		s.mu.Unlock()
		return false
	}
	s.online = online
	ls := make([]func(bool), 0, len(s.listeners))
	for _, fn := range s.listeners {
		ls = append(ls, fn)
	}
	s.mu.Unlock()

	for _, fn := range ls {
		fn(online)
	}
	return true
}

func (s *Signal) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}
