package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/commonground-backend/internal/app"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "commonground",
		Short:         "Common Ground survey aggregation and alignment service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSweepOrphansCmd(),
		newSurveyCmd(),
		newTokenCmd(),
	)
	return root
}

// withApp builds the fully wired application for commands that need services.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	log, err := app.NewLogger()
	if err != nil {
		return err
	}
	a, err := app.New(cmd.Context(), log)
	if err != nil {
		log.Sync()
		return err
	}
	defer a.Close()
	return fn(a)
}

// withConfig loads configuration without opening storage.
func withConfig(fn func(log *logger.Logger, cfg app.Config) error) error {
	log, err := app.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	cfg, err := app.LoadConfig(log)
	if err != nil {
		return err
	}
	return fn(log, cfg)
}
