package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/stevemurr/simple-config-server/auth"
	"github.com/stevemurr/simple-config-server/config"
	"github.com/stevemurr/simple-config-server/configuration"
	"github.com/stevemurr/simple-config-server/handler"
	"github.com/stevemurr/simple-config-server/logging"
	"github.com/stevemurr/simple-config-server/session"
	"github.com/stevemurr/simple-config-server/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFSRV_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := store.NewBackend(cfg.Store.Backend, cfg.Store.DataDir, logger)
	if err != nil {
		return fmt.Errorf("failed to create store (backend=%s): %w", cfg.Store.Backend, err)
	}
	defer backend.Close()

	if cfg.Store.Backend != "json" {
		// first run on a database backend: import the JSON documents
		files := store.NewJSONFileBackend(cfg.Store.DataDir)
		for _, name := range []string{cfg.Store.UsersFile, cfg.Store.ConfigurationsFile} {
			copied, err := store.Seed(ctx, backend, files, name)
			if err != nil {
				return err
			}
			if copied {
				logger.Info("imported document", slog.String("document", name))
			}
		}
	}

	users := auth.NewUserRepository(cfg.Store.UsersFile, backend, logger)
	if err := users.Init(ctx); err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	configurations := configuration.NewRepository(cfg.Store.ConfigurationsFile, backend, logger)
	if err := configurations.Init(ctx); err != nil {
		return fmt.Errorf("load configurations: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	d := handler.New(cfg, handler.Dependencies{
		Logger:         logger,
		Sessions:       session.NewManager(),
		Authenticator:  auth.NewAuthenticator(users, logger),
		Configurations: configuration.NewService(configurations),
		Registry:       reg,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      d,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		logger.Info("server listening",
			slog.String("addr", ln.Addr().String()),
			slog.String("store", cfg.Store.Backend),
			slog.String("data_dir", cfg.Store.DataDir),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
