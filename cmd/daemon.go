package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/applypilot/applypilot/internal/orchestrator"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the daily discovery and application cycle on a schedule",
	Long: `Daemon runs discovery, queue processing, and summary recording on a
cron schedule. The default schedule runs once every morning at 09:00.`,
	Run: func(cmd *cobra.Command, args []string) {
		a := appFromCmd(cmd)
		schedule, _ := cmd.Flags().GetString("schedule")
		runNow, _ := cmd.Flags().GetBool("now")

		orch, err := buildOrchestrator(a)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if runNow {
			summary, err := orch.RunDaily(cmd.Context())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Initial run failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Initial run: %d found, %d queued, %d applied, %d failed\n",
				summary.JobsFound, summary.Queued, summary.Applied, summary.Failed)
		}

		scheduler := orchestrator.NewScheduler(orch)
		if err := scheduler.Start(schedule); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting scheduler: %v\n", err)
			os.Exit(1)
		}
		defer scheduler.Stop()

		fmt.Println("Daemon running. Press Ctrl-C to stop.")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		fmt.Println("\nShutting down...")
	},
}

func init() {
	daemonCmd.Flags().String("schedule", "", "Cron schedule (default: 0 9 * * *)")
	daemonCmd.Flags().Bool("now", false, "Run one cycle immediately before scheduling")

	rootCmd.AddCommand(daemonCmd)
}
