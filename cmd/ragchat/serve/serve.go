// Package servecmder provides the serve command that runs the ragchat API.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragchat/api"
	"github.com/papercomputeco/ragchat/cmd/ragchat/services"
	"github.com/papercomputeco/ragchat/pkg/config"
)

type serveCommander struct {
	cfg    *config.Config
	logger *slog.Logger
}

var serveFlagKeys = append([]string{
	config.FlagListen,
	config.FlagRequestTimeout,
}, services.RetrievalFlagKeys...)

const serveLongDesc string = `Run the ragchat API server.

Endpoints:
  GET  /ping            Health check
  POST /api/v1/chat     Retrieve sources for a question (X-OPENAI-KEY header)
  POST /api/v1/chunks   Embed and store chunks (X-OPENAI-KEY header)

Settings resolve from flags, then RAGCHAT_* environment variables (also read
from .env files), then config.toml, then defaults.`

const serveShortDesc string = "Run the ragchat API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = services.Load(cmd, serveFlagKeys)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cmder.logger, err = services.Logger(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	services.AddFlags(cmd, serveFlagKeys)

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	requestTimeout, err := config.ParseDuration("api.request_timeout", c.cfg.API.RequestTimeout)
	if err != nil {
		return err
	}

	svc, err := services.New(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			c.logger.Warn("closing services", "error", err)
		}
	}()

	server := api.NewServer(api.Config{
		ListenAddr:     c.cfg.API.Listen,
		RequestTimeout: requestTimeout,
		DefaultTopK:    int(c.cfg.VectorStore.TopK),
		Retriever:      svc.Retriever,
	}, c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}
