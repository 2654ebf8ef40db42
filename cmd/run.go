package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flor-ldlse/feedback-bot/internal/app"
	"github.com/flor-ldlse/feedback-bot/internal/config"
	"github.com/flor-ldlse/feedback-bot/internal/infra/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start polling Telegram and serve the status API",
	RunE:  runBot,
}

// loadConfig reads .env, the YAML file from APP_CONFIG and the environment.
func loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := config.Load(config.Path())
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("create bot app", zap.Error(err))
		return err
	}
	defer bot.Close()

	if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("bot app failed", zap.Error(err))
		return err
	}
	return nil
}

// openStorage is shared by the offline inspection commands.
func openStorage(ctx context.Context) (*app.Storage, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	storage, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, fmt.Errorf("storage: %w", err)
	}
	return storage, log, nil
}
