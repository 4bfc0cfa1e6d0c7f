package toast

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWSServer(t *testing.T, sessions *Sessions) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws/toasts", WSHandler(sessions))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/toasts"
}

func readSnapshot(t *testing.T, ws *websocket.Conn) Snapshot {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var snap Snapshot
	require.NoError(t, ws.ReadJSON(&snap))
	return snap
}

func TestWSHandler_PushesSnapshotsAndAcceptsDismiss(t *testing.T) {
	sessions := NewSessions(SessionsConfig{TTL: time.Minute})
	defer sessions.Close()
	s := sessions.Ensure("")
	url := newWSServer(t, sessions)

	header := http.Header{}
	header.Add("Cookie", SessionCookie+"="+s.ID)
	ws, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer ws.Close()
	assert.Empty(t, resp.Header.Get("Set-Cookie"))

	first := readSnapshot(t, ws)
	assert.Equal(t, "toasts", first.Type)
	assert.Empty(t, first.Toasts)

	id := s.Toasts.Success("Book added", time.Minute)
	snap := readSnapshot(t, ws)
	require.Len(t, snap.Toasts, 1)
	assert.Equal(t, id, snap.Toasts[0].ID)
	assert.Equal(t, VariantSuccess, snap.Toasts[0].Variant)

	require.NoError(t, ws.WriteJSON(Command{Type: "dismiss", ID: id}))
	snap = readSnapshot(t, ws)
	assert.Empty(t, snap.Toasts)
	assert.Equal(t, 0, s.Toasts.Len())
}

func TestWSHandler_UnknownCookieStartsSession(t *testing.T) {
	sessions := NewSessions(SessionsConfig{TTL: time.Minute})
	defer sessions.Close()
	url := newWSServer(t, sessions)

	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	cookie := resp.Header.Get("Set-Cookie")
	require.Contains(t, cookie, SessionCookie+"=")
	readSnapshot(t, ws)
	assert.Equal(t, 1, sessions.Len())
}

func TestWSHandler_SessionEndClosesSocket(t *testing.T) {
	sessions := NewSessions(SessionsConfig{TTL: time.Minute})
	s := sessions.Ensure("")
	url := newWSServer(t, sessions)

	header := http.Header{}
	header.Add("Cookie", SessionCookie+"="+s.ID)
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer ws.Close()
	readSnapshot(t, ws)

	sessions.End(s.ID)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
