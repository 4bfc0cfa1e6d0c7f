package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookcatalog/internal/netwatch"
	"bookcatalog/internal/toast"
)

const sessionKey = "session"

// SessionMiddleware attaches the browser's toast session, starting one and
// setting the cookie when the request carries none or an expired one.
func SessionMiddleware(sessions *toast.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(toast.SessionCookie)
		s := sessions.Ensure(id)
		if s.ID != id {
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     toast.SessionCookie,
				Value:    s.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Set(sessionKey, s)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *toast.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*toast.Session)
	return s
}

// WatchConnectivity returns a session start hook that raises connectivity
// toasts for the session until it ends.
func WatchConnectivity(src netwatch.Source) func(*toast.Session) {
	return func(s *toast.Session) {
		w := netwatch.Watch(src, s.Toasts)
		s.OnEnd(w.Close)
	}
}
