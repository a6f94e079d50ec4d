package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"moodnote/internal/journal/config"
	"moodnote/pkg/logger"
)

// cli общее состояние команд после загрузки конфигурации.
type cli struct {
	cfg *config.Config
}

func newRootCommand() *cobra.Command {
	state := &cli{}

	root := &cobra.Command{
		Use:           "moodnote",
		Short:         "Mood journal service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return state.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(
		newServeCommand(state),
		newMigrateCommand(state),
		newReconcileCommand(state),
	)
	return root
}

// load читает конфигурацию и заменяет загрузочный логгер настроенным.
func (c *cli) load(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrLoadConfig, err)
	}

	finalLogger, err := logger.NewLogger(cfg.Logging.GetEnvironment(), cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrInitLoggerWithConfig, err)
	}
	logger.SetGlobalLogger(finalLogger)

	c.cfg = cfg
	return nil
}
