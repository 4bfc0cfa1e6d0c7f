package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"bookcatalog/internal/apierror"
	"bookcatalog/internal/books"
	"bookcatalog/internal/health"
	"bookcatalog/internal/netwatch"
	"bookcatalog/internal/proxy"
	"bookcatalog/internal/toast"
	"bookcatalog/internal/web"
	"bookcatalog/pkg/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := utils.LoadWebConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := utils.NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("web server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg utils.WebConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	upstream := books.NewHTTPClient(logger)

	prober, err := netwatch.NewProber(netwatch.ProberConfig{
		BaseURL:  cfg.APIBaseURL,
		Interval: cfg.ProbeInterval,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	sessions := toast.NewSessions(toast.SessionsConfig{
		TTL:     cfg.SessionTTL,
		OnStart: web.WatchConnectivity(prober),
		Logger:  logger,
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), utils.AccessLog(logger))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"upstream": cfg.APIBaseURL,
			"online":   prober.Online(),
			"sessions": sessions.Len(),
		})
	})

	proxy.NewHandler(cfg.APIBaseURL, upstream, logger).RegisterRoutes(router.Group("/api"))

	pages := web.NewHandler(
		books.NewClient(cfg.APIBaseURL, upstream),
		sessions,
		apierror.NewNormalizer(prober),
		logger,
	)
	if err := pages.Install(router); err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr, "upstream", cfg.APIBaseURL)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
		}
		healthSrv := health.NewServer(prober, logger)
		g.Go(func() error {
			if err := healthSrv.Serve(lis); err != nil {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			healthSrv.Stop(shutdownCtx)
			return nil
		})
	}

	g.Go(func() error { return prober.Run(ctx) })
	g.Go(func() error { return sessions.Run(ctx, 0) })

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("servers stopped")
	return nil
}
