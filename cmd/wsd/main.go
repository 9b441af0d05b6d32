package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gobwas/wsd/internal/config"
	"github.com/gobwas/wsd/internal/echo"
	"github.com/gobwas/wsd/internal/logger"
	"github.com/gobwas/wsd/server"
)

var (
	configPath = flag.String("config", "", "path to configuration file (.toml, .yaml, .json)")
	host       = flag.String("host", config.DefaultHost, "host to listen on")
	port       = flag.Int("port", config.DefaultPort, "port to listen on")
	maxClients = flag.Int("max-clients", config.DefaultMaxClients, "maximum number of concurrent sessions")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wsd: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			return nil, err
		}
	}
	// Flags given explicitly take precedence over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Server.Host = *host
		case "port":
			cfg.Server.Port = *port
		case "max-clients":
			cfg.Server.MaxClients = *maxClients
		}
	})
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, closer, err := logger.New(&cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	sc := cfg.Server.Session()
	m, err := server.NewManager(sc, echo.New(log), server.WithLogger(log))
	if err != nil {
		return fmt.Errorf("create manager: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := m.ListenAndServe(cfg.Server.Addr())
		if errors.Is(err, server.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Dur("timeout", sc.ShutdownTimeout).Msg("shutting down")

		// Leave room for dropping sessions which outlive the grace period.
		sctx, cancel := context.WithTimeout(context.Background(), sc.ShutdownTimeout+time.Second)
		defer cancel()
		err := m.Shutdown(sctx)
		if errors.Is(err, server.ErrServerClosed) {
			return nil
		}
		return err
	})

	err = g.Wait()
	if err != nil {
		log.Error().Err(err).Msg("server stopped")
	} else {
		log.Info().Msg("server stopped")
	}
	return err
}
