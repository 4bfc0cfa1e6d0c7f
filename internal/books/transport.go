package books

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxLoggedBody caps how much of a body is copied into debug logs.
const maxLoggedBody = 2048

// LoggingTransport is an http.RoundTripper that logs outbound calls to the
// books API. Bodies are only captured when the logger has debug enabled.
type LoggingTransport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debug := logger.Enabled(req.Context(), slog.LevelDebug)

	if debug && req.Body != nil && req.Body != http.NoBody {
		var reqBody []byte
		if req.GetBody != nil {
			if rc, err := req.GetBody(); err == nil {
				reqBody, _ = io.ReadAll(rc)
				_ = rc.Close()
			}
		} else {
			reqBody, _ = io.ReadAll(req.Body)
			_ = req.Body.Close()
			req.Body = io.NopCloser(bytes.NewReader(reqBody))
		}
		logger.Debug("outbound request body", "method", req.Method, "url", req.URL.String(), "body", clip(reqBody))
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	elapsed := time.Since(start)
	if err != nil {
		logger.LogAttrs(req.Context(), slog.LevelWarn, "outbound request failed",
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.Duration("elapsed", elapsed),
			slog.Any("err", err),
		)
		return resp, err
	}

	logger.LogAttrs(req.Context(), slog.LevelDebug, "outbound request",
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", elapsed),
	)

	if debug && resp.Body != nil {
		respBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(respBody))
		if len(respBody) > 0 {
			logger.Debug("outbound response body", "url", req.URL.String(), "body", clip(respBody))
		}
	}
	return resp, nil
}

func clip(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "..."
	}
	return string(b)
}

// NewHTTPClient returns the client shared by the proxy, the page views and
// the prober. Deadlines come from request contexts, not the client.
func NewHTTPClient(logger *slog.Logger) *http.Client {
	return &http.Client{
		Transport: &LoggingTransport{
			Base:   http.DefaultTransport,
			Logger: logger.With("component", "upstream"),
		},
	}
}
