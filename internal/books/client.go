// Package books is a typed client for the remote books API. Every failure
// it returns is an apierror.Failure (or wraps one), so callers can hand
// errors straight to the normalizer.
package books

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookcatalog/internal/apierror"
	"bookcatalog/pkg/models"
)

// MutationTimeout bounds every create, update and delete call.
const MutationTimeout = 10 * time.Second

var ErrNotFound = errors.New("book not found")

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    hc,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) List(ctx context.Context) ([]models.Book, error) {
	var out []models.Book
	if err := c.do(ctx, http.MethodGet, "/books", nil, &out); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if out == nil {
		out = []models.Book{}
	}
	return out, nil
}

// Get returns ErrNotFound when the API answers 404.
func (c *Client) Get(ctx context.Context, id string) (*models.Book, error) {
	var out models.Book
	if err := c.do(ctx, http.MethodGet, bookPath(id), nil, &out); err != nil {
		if apierror.IsStatus(err, http.StatusNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get book %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) Create(ctx context.Context, nb models.NewBook) (*models.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, MutationTimeout)
	defer cancel()

	var out models.Book
	if err := c.do(ctx, http.MethodPost, "/books", nb, &out); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	return &out, nil
}

// Update sends only the fields set in ub.
func (c *Client) Update(ctx context.Context, id string, ub models.UpdateBook) (*models.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, MutationTimeout)
	defer cancel()

	var out models.Book
	if err := c.do(ctx, http.MethodPut, bookPath(id), ub, &out); err != nil {
		return nil, fmt.Errorf("update book %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, MutationTimeout)
	defer cancel()

	if err := c.do(ctx, http.MethodDelete, bookPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete book %s: %w", id, err)
	}
	return nil
}

func bookPath(id string) string {
	return "/books/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, in, dest any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apierror.FromError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			raw = nil
		}
		return &apierror.HTTPFailure{Status: resp.StatusCode, Body: bytes.NewReader(raw)}
	}

	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if ctx.Err() != nil {
			return apierror.FromError(ctx.Err())
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
