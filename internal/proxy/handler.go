// Package proxy relays /api/books requests to the books API unchanged.
package proxy

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bookcatalog/internal/books"
)

const unavailable = "upstream unavailable"

type Handler struct {
	BaseURL string
	Client  *http.Client
	Logger  *slog.Logger
	// MutationTimeout bounds POST, PUT and DELETE calls to the upstream.
	MutationTimeout time.Duration
}

func NewHandler(baseURL string, client *http.Client, logger *slog.Logger) *Handler {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		BaseURL:         strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Client:          client,
		Logger:          logger.With("component", "proxy"),
		MutationTimeout: books.MutationTimeout,
	}
}

// RegisterRoutes mounts the proxy on rg, normally the /api group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/books", h.forward)
	rg.POST("/books", h.forward)
	rg.GET("/books/:id", h.forward)
	rg.PUT("/books/:id", h.forward)
	rg.DELETE("/books/:id", h.forward)
}

func (h *Handler) target(c *gin.Context) string {
	if id, ok := c.Params.Get("id"); ok {
		return h.BaseURL + "/books/" + url.PathEscape(id)
	}
	return h.BaseURL + "/books"
}

func (h *Handler) forward(c *gin.Context) {
	var body io.Reader
	if c.Request.Method == http.MethodPost || c.Request.Method == http.MethodPut {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"Error": "could not read request body"})
			return
		}
		body = bytes.NewReader(raw)
	}

	ctx := c.Request.Context()
	if c.Request.Method != http.MethodGet {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.MutationTimeout)
		defer cancel()
	}

	target := h.target(c)
	req, err := http.NewRequestWithContext(ctx, c.Request.Method, target, body)
	if err != nil {
		h.Logger.Error("build upstream request", "url", target, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"Error": unavailable})
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		h.Logger.Warn("upstream request failed", "method", req.Method, "url", target, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"Error": unavailable})
		return
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		h.Logger.Warn("read upstream response", "url", target, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"Error": unavailable})
		return
	}

	c.Data(resp.StatusCode, "application/json", raw)
}
