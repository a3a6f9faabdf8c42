package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/applypilot/applypilot/internal/app"
	"github.com/applypilot/applypilot/internal/database"
)

var applyCmd = &cobra.Command{
	Use:   "apply [listing-id]",
	Short: "Apply to a listing, or work the whole queue",
	Long: `With a listing id, queues that listing and processes the queue.
With --queue, processes everything already queued. The browser opens the
career page, fills the form from your profile, and submits.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := appFromCmd(cmd)
		user := mustUser()

		orch, err := buildOrchestrator(a)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(args) == 1 {
			listingID, err := parseID(args[0])
			if err != nil {
				fmt.Fprintln(os.Stderr, "Invalid listing id")
				os.Exit(1)
			}
			if _, err := database.GetListing(listingID); err != nil {
				fmt.Fprintf(os.Stderr, "Listing %d not found\n", listingID)
				os.Exit(1)
			}
			if err := orch.Queue(user.ID, listingID); err != nil {
				fmt.Fprintf(os.Stderr, "Error queueing listing: %v\n", err)
				os.Exit(1)
			}
		} else {
			queueOnly, _ := cmd.Flags().GetBool("queue")
			if !queueOnly {
				fmt.Fprintln(os.Stderr, "Provide a listing id or --queue")
				os.Exit(1)
			}
		}

		fmt.Println("Working the application queue...")
		res, err := orch.ProcessQueue(cmd.Context())
		if err != nil && !errors.Is(err, app.ErrDailyCapReached) {
			fmt.Fprintf(os.Stderr, "Queue processing failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(titleStyle.Render("Queue Results"))
		fmt.Printf("%s %d\n", labelStyle.Render("Processed:"), res.Processed)
		fmt.Printf("%s %d\n", labelStyle.Render("Applied:"), res.Applied)
		fmt.Printf("%s %d\n", labelStyle.Render("Failed:"), res.Failed)
		if res.Requeued > 0 {
			fmt.Printf("%s %d\n", labelStyle.Render("Requeued:"), res.Requeued)
		}
		if errors.Is(err, app.ErrDailyCapReached) {
			fmt.Println(errorStyle.Render("Daily application cap reached; remaining items stay queued."))
		}
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry <application-id>",
	Short: "Re-queue a failed application",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := appFromCmd(cmd)

		id, err := parseID(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "Invalid application id")
			os.Exit(1)
		}

		orch, err := buildOrchestrator(a)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := orch.Retry(id); err != nil {
			fmt.Fprintf(os.Stderr, "Error retrying application: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Application %d re-queued. Run 'applypilot apply --queue' to process it.\n", id)
	},
}

func parseID(s string) (int, error) {
	return strconv.Atoi(s)
}

func init() {
	applyCmd.Flags().Bool("queue", false, "Process the existing queue without adding a listing")

	rootCmd.AddCommand(applyCmd, retryCmd)
}
