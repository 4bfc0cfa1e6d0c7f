package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"bookcatalog/internal/catalog"
	"bookcatalog/pkg/database"
	"bookcatalog/pkg/utils"
)

func main() {
	cfg, err := utils.LoadCatalogConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := utils.NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, database.DefaultConfig(), logger); err != nil {
		logger.Error("catalog api stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg utils.CatalogConfig, dbCfg database.Config, logger *slog.Logger) error {
	db, err := database.Open(dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	h := catalog.NewHandler(catalog.NewRepo(db), logger)
	router := catalog.NewRouter(h, utils.AccessLog(logger))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("catalog API listening", "addr", cfg.HTTPAddr, "db", dbCfg.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("catalog API stopped")
	return nil
}
