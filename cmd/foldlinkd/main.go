package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/foldlink/foldlink/internal/config"
	"github.com/foldlink/foldlink/internal/directory"
	"github.com/foldlink/foldlink/internal/logging"
	"github.com/foldlink/foldlink/internal/node"
	"github.com/foldlink/foldlink/internal/observability"
)

func main() {
	configPath := flag.String("config", "cmd/foldlinkd/config.toml", "path to server config")
	flag.Parse()

	logging.ConfigureRuntime()

	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("foldlinkd: config")
	}
	observability.InitLogger("foldlinkd", cfg.NodeID)

	svc := directory.NewService(directory.Config{LinkBaseURL: cfg.LinkBaseURL})
	for _, acc := range cfg.Accounts {
		info := svc.AddAccount(acc.Username, acc.Password, acc.DisplayName)
		log.Info().Str("username", info.Username).Str("id", info.ID).Msg("foldlinkd: account seeded")
	}

	srv, err := node.NewServer(node.ServerConfig{
		Address: cfg.Addr,
		NodeID:  cfg.NodeID,
		Nick:    cfg.Nick,
		Session: config.SessionConfig(cfg.Transport, cfg.Timeouts),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("foldlinkd: server")
	}
	if err := directory.RegisterHandlers(srv, svc); err != nil {
		log.Fatal().Err(err).Msg("foldlinkd: handlers")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ops := &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           observability.NewOpsRouter(cfg.NodeID, nil),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.OpsAddr).Msg("foldlinkd: ops listening")
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("foldlinkd: ops server")
		}
	}()

	if err := srv.Listen(); err != nil {
		log.Fatal().Err(err).Msg("foldlinkd: listen")
	}
	err = srv.Serve(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = ops.Shutdown(shutdownCtx)

	if err != nil && !errors.Is(err, node.ErrServerClosed) {
		log.Fatal().Err(err).Msg("foldlinkd: serve")
	}
	log.Info().Msg("foldlinkd: stopped")
}
