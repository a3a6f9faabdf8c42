package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/applypilot/applypilot/internal/app"
	"github.com/applypilot/applypilot/internal/config"
	"github.com/applypilot/applypilot/internal/database"
	"github.com/applypilot/applypilot/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "applypilot",
	Short: "Automated job discovery and application pipeline",
	Long: `Applypilot discovers job postings across multiple boards, scores them
against your profile, and applies through company career pages with a
headless browser. Cover letters are generated per listing by a
configurable AI provider.`,
	Version: "0.1.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.NewApp(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}

		dir, err := config.Dir()
		if err != nil {
			return err
		}
		logger.Setup(dir, application.Config.LogLevel)

		if err := database.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		cmd.SetContext(app.SetAppInContext(cmd.Context(), application))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		database.Close()
		logger.Cleanup()
	},
}

// Execute runs the root command
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rootCmd.SetContext(ctx)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// appFromCmd pulls the initialized container out of the command context.
func appFromCmd(cmd *cobra.Command) *app.App {
	return app.GetAppFromContext(cmd.Context())
}
