package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookcatalog/internal/toast"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchToasts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := toast.NewSessions(toast.SessionsConfig{
		TTL:    time.Minute,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	defer sessions.Close()

	r := gin.New()
	r.GET("/ws/toasts", toast.WSHandler(sessions))
	srv := httptest.NewServer(r)
	defer srv.Close()

	endpoint, err := websocketURL(srv.URL+"/api", "/ws/toasts")
	require.NoError(t, err)

	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- watchToasts(context.Background(), &out, endpoint, "") }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "(no toasts)")
	}, 2*time.Second, 10*time.Millisecond)

	first, _, _ := strings.Cut(out.String(), "\n")
	id, ok := strings.CutPrefix(first, "session ")
	require.True(t, ok, "first line %q", first)
	s, ok := sessions.Get(id)
	require.True(t, ok)

	toastID := s.Toasts.Info("Back online.", time.Minute)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `[info] `+toastID+` "Back online."`)
	}, 2*time.Second, 10*time.Millisecond)

	sessions.End(id)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after the session ended")
	}
}

func TestWatchToasts_StopsOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := toast.NewSessions(toast.SessionsConfig{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	defer sessions.Close()

	r := gin.New()
	r.GET("/ws/toasts", toast.WSHandler(sessions))
	srv := httptest.NewServer(r)
	defer srv.Close()

	endpoint, err := websocketURL(srv.URL, "/ws/toasts")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- watchToasts(ctx, &out, endpoint, "") }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "(no toasts)")
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop on cancel")
	}
}
