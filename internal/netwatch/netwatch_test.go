package netwatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookcatalog/internal/toast"
)

type recorded struct {
	variant string
	message string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []recorded
}

func (f *fakeNotifier) Error(message string, _ time.Duration) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recorded{"error", message})
	return "e"
}

func (f *fakeNotifier) Info(message string, _ time.Duration) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recorded{"info", message})
	return "i"
}

func (f *fakeNotifier) snapshot() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.calls...)
}

func TestWatch_EmitsOnTransitions(t *testing.T) {
	sig := NewSignal(true)
	n := &fakeNotifier{}
	w := Watch(sig, n)
	defer w.Close()

	sig.Set(false)
	sig.Set(false)
	sig.Set(true)

	assert.Equal(t, []recorded{
		{"error", MsgOffline},
		{"info", MsgOnline},
	}, n.snapshot())
}

func TestWatch_NothingAfterClose(t *testing.T) {
	sig := NewSignal(true)
	n := &fakeNotifier{}
	w := Watch(sig, n)

	w.Close()
	w.Close()
	sig.Set(false)
	sig.Set(true)

	assert.Empty(t, n.snapshot())
}

func TestWatch_WithToastManager(t *testing.T) {
	sig := NewSignal(true)
	m := toast.New()
	defer m.Close()
	w := Watch(sig, m)
	defer w.Close()

	sig.Set(false)
	got := m.Toasts()
	require.Len(t, got, 1)
	assert.Equal(t, toast.VariantError, got[0].Variant)
	assert.Equal(t, MsgOffline, got[0].Message)

	sig.Set(true)
	got = m.Toasts()
	require.Len(t, got, 2)
	assert.Equal(t, toast.VariantInfo, got[0].Variant)
	assert.Equal(t, MsgOnline, got[0].Message)
}

func TestSignal_SetReportsChange(t *testing.T) {
	sig := NewSignal(false)
	assert.False(t, sig.Online())
	assert.False(t, sig.Set(false))
	assert.True(t, sig.Set(true))
	assert.True(t, sig.Online())
}

func TestProber_TracksReachability(t *testing.T) {
	var mu sync.Mutex
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/books", r.URL.Path)
		mu.Lock()
		defer mu.Unlock()
		w.WriteHeader(status)
	}))
	defer srv.Close()

	p, err := NewProber(ProberConfig{BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	var seen []bool
	p.Subscribe(func(online bool) { seen = append(seen, online) })

	ctx := context.Background()
	assert.True(t, p.Check(ctx))

	// error statuses still mean the upstream answered
	mu.Lock()
	status = http.StatusInternalServerError
	mu.Unlock()
	assert.True(t, p.Check(ctx))

	srv.Close()
	assert.False(t, p.Check(ctx))
	assert.False(t, p.Online())
	assert.False(t, p.Check(ctx))

	assert.Equal(t, []bool{false}, seen)
}

func TestProber_RequiresBaseURL(t *testing.T) {
	_, err := NewProber(ProberConfig{BaseURL: "  "})
	assert.Error(t, err)
}

func TestProber_RunStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	p, err := NewProber(ProberConfig{BaseURL: srv.URL, Interval: 5 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.True(t, p.Online())
}
