package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/taskhouse/internal/server"
	"github.com/dukerupert/taskhouse/internal/store"
	"github.com/spf13/cobra"
)

const (
	sessionCleanupInterval   = time.Hour
	rateLimitCleanupInterval = 5 * time.Minute
	shutdownTimeout          = 5 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return err
	}

	gw, db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := gw.Release(); err != nil {
			logger.Error("release database", "error", err)
		}
	}()

	srv := server.New(db, server.Options{
		SessionTTL:     cfg.Session.TTL,
		StatsLocation:  loc,
		DefaultWeeks:   cfg.Stats.Weeks,
		TrustedProxies: proxies,
	}, logger)

	n, err := srv.StatsStore().InitializeUsers(ctx)
	if err != nil {
		return fmt.Errorf("initialize statistics: %w", err)
	}
	if n > 0 {
		logger.Info("initialized statistics", "users", n)
	}

	go srv.RateLimiter().Run(ctx, rateLimitCleanupInterval)
	go cleanupSessions(ctx, srv.SessionStore(), sessionCleanupInterval)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("taskhouse listening", "addr", httpServer.Addr, "timezone", loc.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func cleanupSessions(ctx context.Context, sessions *store.SessionStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx)
			if err != nil {
				logger.Error("delete expired sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("deleted expired sessions", "count", n)
			}
		}
	}
}
