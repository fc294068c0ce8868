package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/edgewatch/edgewatch/internal/app"
	"github.com/edgewatch/edgewatch/internal/config"
	httpapi "github.com/edgewatch/edgewatch/internal/interfaces/http"
	"github.com/edgewatch/edgewatch/internal/providers"
	"github.com/edgewatch/edgewatch/internal/store"
	"github.com/edgewatch/edgewatch/internal/telemetry/metrics"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with the HTTP API and periodic refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := metrics.NewRegistry()
	client, err := providers.NewClient("coingecko", cfg.ProviderConfig(), reg)
	if err != nil {
		return err
	}

	engine := app.New(cfg, app.Sources{Snapshots: client, Intraday: client, Candles: client}, st, reg)
	if err := engine.Start(ctx); err != nil {
		return err
	}

	handlers := httpapi.NewHandlers(engine, reg, client.BreakerState, version)
	server, err := httpapi.NewServer(httpapi.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}, handlers)
	if err != nil {
		return err
	}
	engine.SetUpdateHook(server.Hub().Broadcast)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	go refreshLoop(ctx, engine, cfg.RefreshInterval())
	go clockLoop(ctx, engine, server.Hub())

	log.Info().
		Str("addr", server.Address()).
		Int("watchlist", len(cfg.Watchlist)).
		Dur("refresh_interval", cfg.RefreshInterval()).
		Msg("edgewatch running")

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// refreshLoop runs one cycle immediately, then on the configured cadence.
// Cycle errors are logged inside Refresh; the loop never stops on them.
func refreshLoop(ctx context.Context, engine *app.Engine, interval time.Duration) {
	_ = engine.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = engine.Refresh(ctx)
		}
	}
}

// clockLoop pushes a state snapshot every second so connected dashboards
// get a live session countdown between refresh cycles.
func clockLoop(ctx context.Context, engine *app.Engine, hub *httpapi.Hub) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hub.Broadcast(engine.State())
		}
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return store.NewMemory(), nil
	case config.BackendFile:
		return store.NewFile(cfg.Storage.Path), nil
	case config.BackendRedis:
		return store.NewRedis(ctx, cfg.Storage.Redis.Addr, cfg.Storage.Redis.DB)
	case config.BackendPostgres:
		return store.NewPostgres(ctx, cfg.Storage.Postgres.DSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
