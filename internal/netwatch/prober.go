package netwatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultProbeInterval = 15 * time.Second
	probeTimeout         = 5 * time.Second
)

// Prober polls the books API and reports whether it is reachable. Any HTTP
// response counts as reachable; only transport errors count as offline.
type Prober struct {
	*Signal

	url      string
	client   *http.Client
	interval time.Duration
	logger   *slog.Logger
}

type ProberConfig struct {
	BaseURL  string
	Interval time.Duration
	Client   *http.Client
	Logger   *slog.Logger
}

// NewProber starts out online, so a healthy first probe publishes nothing.
func NewProber(cfg ProberConfig) (*Prober, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("prober: base url is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultProbeInterval
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: probeTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Prober{
		Signal:   NewSignal(true),
		url:      base + "/books",
		client:   cfg.Client,
		interval: cfg.Interval,
		logger:   cfg.Logger.With("component", "prober"),
	}, nil
}

// Check runs one probe, records the result and returns it.
func (p *Prober) Check(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	online := true
	req, err := http.NewRequestWithContext(pctx, http.MethodGet, p.url, nil)
	if err != nil {
		online = false
	} else {
		req.Header.Set("Accept", "application/json")
		resp, err := p.client.Do(req)
		if err != nil {
			online = false
			p.logger.Debug("probe failed", "err", err)
		} else {
			_ = resp.Body.Close()
		}
	}

	// a probe cut short by shutdown says nothing about the upstream
	if !online && ctx.Err() != nil {
		return p.Online()
	}

	if p.Set(online) {
		if online {
			p.logger.Info("books api reachable again")
		} else {
			p.logger.Warn("books api unreachable", "url", p.url)
		}
	}
	return online
}

// Run probes immediately and then on every tick until ctx is done.
func (p *Prober) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.Check(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
