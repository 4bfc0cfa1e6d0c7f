package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seenRequest struct {
	method, path, contentType, body string
}

func newRouter(baseURL string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(baseURL, nil, nil).RegisterRoutes(r.Group("/api"))
	return r
}

func TestForward_PassesStatusAndBodyThrough(t *testing.T) {
	var seen seenRequest
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seen = seenRequest{r.Method, r.URL.EscapedPath(), r.Header.Get("Content-Type"), string(b)}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"FieldErrors":{"title":"title is required"},"Errors":[]}`)
	}))
	defer upstream.Close()

	r := newRouter(upstream.URL + "/")

	tests := []struct {
		method, path, body string
		wantPath           string
	}{
		{http.MethodGet, "/api/books", "", "/books"},
		{http.MethodPost, "/api/books", `{"title":""}`, "/books"},
		{http.MethodGet, "/api/books/b1", "", "/books/b1"},
		{http.MethodPut, "/api/books/b1", `{"year":1999}`, "/books/b1"},
		{http.MethodDelete, "/api/books/b1", "", "/books/b1"},
		{http.MethodGet, "/api/books/a%20b", "", "/books/a%20b"},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, `{"FieldErrors":{"title":"title is required"},"Errors":[]}`, w.Body.String())

			assert.Equal(t, tc.method, seen.method)
			assert.Equal(t, tc.wantPath, seen.path)
			assert.Equal(t, "application/json", seen.contentType)
			assert.Equal(t, tc.body, seen.body)
		})
	}
}

func TestForward_NoContent(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstream.Close()

	w := httptest.NewRecorder()
	newRouter(upstream.URL).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/books/b1", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestForward_DeadUpstreamIsBadGateway(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	base := upstream.URL
	upstream.Close()

	w := httptest.NewRecorder()
	newRouter(base).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books", nil))

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"Error":"upstream unavailable"}`, w.Body.String())
}

func TestForward_MutationsAreBounded(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, `[]`)
			return
		}
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer upstream.Close()
	defer close(release)

	gin.SetMode(gin.TestMode)
	h := NewHandler(upstream.URL, nil, nil)
	h.MutationTimeout = 50 * time.Millisecond
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		path := "/api/books/b1"
		if method == http.MethodPost {
			path = "/api/books"
		}
		start := time.Now()
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(`{}`)))

		assert.Equal(t, http.StatusBadGateway, w.Code, method)
		assert.Less(t, time.Since(start), 5*time.Second, method)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewHandler_DefaultsToMutationTimeout(t *testing.T) {
	h := NewHandler("http://example.com", nil, nil)
	assert.Equal(t, 10*time.Second, h.MutationTimeout)
}
