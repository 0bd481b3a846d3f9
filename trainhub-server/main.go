package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trainhub/internal/api"
	"trainhub/internal/config"
	"trainhub/internal/observe"
	"trainhub/internal/ratelimit"
	"trainhub/internal/training"
	"trainhub/internal/widget"
)

const serverVersion = "0.1.0-dev"

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "trainhub-server:", err)
		os.Exit(1)
	}
}

func run(args []string, logOut io.Writer) error {
	fs := flag.NewFlagSet("trainhub-server", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "path to YAML config file")
		addr       = fs.String("addr", "", "HTTP listen address (overrides config and "+config.EnvAddr+")")
		verbose    = fs.Bool("verbose", false, "enable debug logging")
		logJSON    = fs.Bool("log-json", false, "emit JSON logs")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	obs := observe.New(logOut, *verbose)
	if *logJSON {
		obs = observe.NewJSON(logOut, *verbose)
	}

	limiter := ratelimit.NewLimiter(cfg.RateLimit.Writes, cfg.RateLimit.Window)
	handler, err := buildHandler(cfg, limiter, obs)
	if err != nil {
		return err
	}

	for _, key := range cfg.Upstream.Missing() {
		obs.Log().Warn().Str("key", key).Msg("upstream setting missing, affected requests will fail")
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepLoop(ctx, limiter, cfg.RateLimit.Window)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			obs.Log().Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	obs.Log().Info().
		Str("addr", server.Addr).
		Str("upstream", cfg.Upstream.BaseURL).
		Str("version", serverVersion).
		Msg("trainhub-server listening")
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	stop()
	<-shutdownDone
	return nil
}

func buildHandler(cfg *config.Config, limiter *ratelimit.Limiter, obs *observe.Observer) (http.Handler, error) {
	catalog, err := widget.NewCatalog(cfg.Widgets)
	if err != nil {
		return nil, err
	}
	return api.NewRouter(api.Deps{
		Trainings:        training.NewProxy(cfg.Upstream, nil, obs),
		Widgets:          catalog,
		ConfiguredAgents: cfg.Upstream.ConfiguredAgents(),
		WriteLimiter:     limiter,
		Observer:         obs,
		Version:          serverVersion,
	}), nil
}

func sweepLoop(ctx context.Context, limiter *ratelimit.Limiter, window time.Duration) {
	if window <= 0 {
		window = time.Minute
	}
	ticker := time.NewTicker(window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			limiter.Sweep(now.UTC())
		}
	}
}
