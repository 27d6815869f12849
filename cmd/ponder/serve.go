package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lhoral/ponder/internal/api"
	"github.com/lhoral/ponder/internal/logging"
	"github.com/lhoral/ponder/internal/orchestrator"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Start the bot",
		RunE: func(_ *cobra.Command, _ []string) error {
			return serve()
		},
	}
}

// apiServer is the interface used by serve() to decouple from api.Server for testing.
type apiServer interface {
	Start(addr string) error
	Stop(ctx context.Context) error
}

var newAPIServer = func(handler api.EventHandler, logger *slog.Logger) apiServer {
	return api.NewServer(handler, logger)
}

func serve() error {
	cfg, err := configLoad()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting ponder", "addr", cfg.ListenAddr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bot := newSlackTransport(cfg.SlackBotToken, logging.WithComponent(logger, "slack"))
	if err := bot.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticating with slack: %w", err)
	}
	logger.Info("authenticated with slack", "bot_user_id", bot.BotUserID())

	claude := newClaudeClient(cfg, logging.WithComponent(logger, "llm"))
	orch := orchestrator.New(bot, claude, logging.WithComponent(logger, "orchestrator"), cfg.HeaderSwitchInterval)

	apiSrv := newAPIServer(orch, logging.WithComponent(logger, "api"))
	if err := apiSrv.Start(cfg.ListenAddr); err != nil {
		return fmt.Errorf("starting api server: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if err := apiSrv.Stop(context.Background()); err != nil {
		slog.Error("api server stop error", "error", err)
	}

	return nil
}
