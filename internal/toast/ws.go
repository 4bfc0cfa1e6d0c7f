package toast

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // pages and socket share the server origin
	},
}

// SessionCookie carries the session id between page loads and the socket.
const SessionCookie = "bc_session"

// WSHandler streams the session's toasts and applies dismiss commands sent
// back by the page. An unknown or missing session cookie starts a new session.
func WSHandler(sessions *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(SessionCookie)
		s := sessions.Ensure(id)

		var header http.Header
		if s.ID != id {
			header = http.Header{}
			header.Add("Set-Cookie", (&http.Cookie{
				Name:     SessionCookie,
				Value:    s.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			}).String())
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, header)
		if err != nil {
			return
		}
		if !s.Hub.Add(ws) {
			_ = ws.Close()
			return
		}
		release := s.Hold()
		defer release()

		log := sessions.logger.With("component", "ws", "session", s.ID)
		log.Debug("client connected")

		// catch the new client up through the ordered publish path
		s.Toasts.Resend()

		for {
			_, payload, err := ws.ReadMessage()
			if err != nil {
				break
			}
			var cmd Command
			if err := json.Unmarshal(payload, &cmd); err != nil {
				log.Debug("ignore malformed frame", "err", err)
				continue
			}
			switch cmd.Type {
			case "dismiss":
				s.Toasts.Dismiss(cmd.ID)
			default:
				log.Debug("ignore unknown command", "type", cmd.Type)
			}
		}

		s.Hub.Remove(ws)
		log.Debug("client disconnected")
	}
}
