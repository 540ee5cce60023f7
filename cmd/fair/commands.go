package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fair-bot/internal/app"
	"fair-bot/internal/common"
	"fair-bot/internal/config"
)

// NewRootCommand создаёт корневую команду.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fair",
		Short:         "Telegram-бот честной ярмарки",
		Long:          "Бот ярмарки: регистрация игроков и менеджеров, очереди на локации, награды, покупки и переводы монет.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newHashPasswordCommand())
	return cmd
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Запустить бота, служебный HTTP и планировщик",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// Контекст отменяется по Ctrl+C или docker stop
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info("=== Бот запускается ===")

			application, err := app.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("не удалось инициализировать приложение: %w", err)
			}
			defer application.Close()

			log.Info("=== Бот готов к работе ===")
			if err := application.Run(ctx); err != nil {
				return err
			}

			log.Info("=== Бот остановлен ===")
			return nil
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить миграции схемы и выйти",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return migrate(cmd.Context(), cfg)
		},
	}
}

func migrate(ctx context.Context, cfg *config.Config) error {
	drv, err := app.OpenDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer drv.Close()

	if err := app.Migrate(ctx, drv); err != nil {
		return fmt.Errorf("ошибка миграций: %w", err)
	}
	log.WithField("driver", drv.Name()).Info("Миграции применены")
	return nil
}

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <пароль>",
		Short: "Напечатать Argon2id хеш для MANAGER_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := common.HashPassword(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}

// loadConfig читает окружение и применяет настройки логирования.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	applyLogConfig(cfg)
	return cfg, nil
}
