package toast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_EnsureReturnsSameManagerForSameID(t *testing.T) {
	r := NewSessions(SessionsConfig{TTL: time.Minute})
	defer r.Close()

	s := r.Ensure("")
	require.NotEmpty(t, s.ID)

	again := r.Ensure(s.ID)
	assert.Same(t, s, again)
	assert.Same(t, s.Toasts, again.Toasts)
	assert.Equal(t, 1, r.Len())

	other := r.Ensure("unknown-cookie")
	assert.NotEqual(t, s.ID, other.ID)
	assert.NotEqual(t, "unknown-cookie", other.ID)
	assert.Equal(t, 2, r.Len())
}

func TestSessions_GetUnknown(t *testing.T) {
	r := NewSessions(SessionsConfig{})
	defer r.Close()

	_, ok := r.Get("")
	assert.False(t, ok)
	_, ok = r.Get("nope")
	assert.False(t, ok)
}

func TestSessions_OnStartRunsOnce(t *testing.T) {
	started := 0
	r := NewSessions(SessionsConfig{OnStart: func(*Session) { started++ }})
	defer r.Close()

	s := r.Ensure("")
	r.Ensure(s.ID)
	r.Ensure(s.ID)
	assert.Equal(t, 1, started)
}

func TestSessions_SweepEndsIdleSessions(t *testing.T) {
	r := NewSessions(SessionsConfig{TTL: time.Minute})
	defer r.Close()

	idle := r.Ensure("")
	idle.Toasts.Info("pending", time.Hour)
	ended := false
	idle.OnEnd(func() { ended = true })

	fresh := r.Ensure("")

	// backdate the idle one only
	idle.touch(time.Now().Add(-2 * time.Minute))

	n := r.Sweep(time.Now())
	assert.Equal(t, 1, n)
	assert.True(t, ended)
	assert.Equal(t, 0, idle.Toasts.Len())

	_, ok := r.Get(idle.ID)
	assert.False(t, ok)
	_, ok = r.Get(fresh.ID)
	assert.True(t, ok)

	// a closed manager ignores new toasts
	idle.Toasts.Info("late", time.Hour)
	assert.Equal(t, 0, idle.Toasts.Len())
}

func TestSessions_HoldPreventsExpiry(t *testing.T) {
	r := NewSessions(SessionsConfig{TTL: time.Minute})
	defer r.Close()

	s := r.Ensure("")
	release := s.Hold()
	s.touch(time.Now().Add(-time.Hour))

	assert.Equal(t, 0, r.Sweep(time.Now()))

	release()
	release()
	// release marks the session as seen
	assert.Equal(t, 0, r.Sweep(time.Now()))
	assert.Equal(t, 1, r.Sweep(time.Now().Add(2*time.Minute)))
}

func TestSessions_OnEndOrderAndLateRegistration(t *testing.T) {
	r := NewSessions(SessionsConfig{})
	s := r.Ensure("")

	var order []int
	s.OnEnd(func() { order = append(order, 1) })
	s.OnEnd(func() { order = append(order, 2) })

	r.End(s.ID)
	r.End(s.ID)
	assert.Equal(t, []int{2, 1}, order)

	late := false
	s.OnEnd(func() { late = true })
	assert.True(t, late)
}

func TestSessions_RunClosesOnCancel(t *testing.T) {
	r := NewSessions(SessionsConfig{TTL: time.Minute})
	s := r.Ensure("")
	s.Toasts.Info("x", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, 10*time.Millisecond) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, s.Toasts.Len())
}
