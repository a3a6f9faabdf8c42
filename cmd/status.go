package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/applypilot/applypilot/internal/app"
	"github.com/applypilot/applypilot/internal/database"
	"github.com/applypilot/applypilot/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View application status",
	Long:  "View your applications grouped by status, with failure notes for manual followup",
	Run: func(cmd *cobra.Command, args []string) {
		user := mustUser()
		filterStatus, _ := cmd.Flags().GetString("filter")
		showLog, _ := cmd.Flags().GetBool("log")

		apps, err := database.ListApplications(user.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching applications: %v\n", err)
			os.Exit(1)
		}
		if len(apps) == 0 {
			fmt.Println("No applications yet. Queue one with 'applypilot apply <listing-id>'")
			return
		}

		groups := map[string][]*models.Application{}
		for _, a := range apps {
			if filterStatus != "" && a.Status != filterStatus {
				continue
			}
			groups[a.Status] = append(groups[a.Status], a)
		}

		fmt.Println(titleStyle.Render("Your Applications"))

		order := []string{
			models.StatusQueued,
			models.StatusGeneratingCover,
			models.StatusApplying,
			models.StatusApplied,
			models.StatusFailed,
		}
		for _, status := range order {
			group := groups[status]
			if len(group) == 0 {
				continue
			}

			fmt.Printf("\n%s (%d)\n", labelStyle.Render(statusLabel(status)), len(group))
			for _, a := range group {
				listing, err := database.GetListing(a.ListingID)
				if err != nil {
					fmt.Printf("  • application %d (listing missing)\n", a.ID)
					continue
				}
				fmt.Printf("  • %s at %s\n", listing.Job.Title, listing.Job.Company)
				fmt.Printf("    %s %d | %s %d", labelStyle.Render("ID:"), a.ID,
					labelStyle.Render("Listing:"), a.ListingID)
				if a.AppliedAt != nil {
					fmt.Printf(" | %s %s via %s", labelStyle.Render("Applied:"),
						a.AppliedAt.Format("2006-01-02"), a.AppliedVia)
				}
				fmt.Println()
				if a.ErrorMessage != "" {
					fmt.Printf("    %s\n", errorStyle.Render(a.ErrorMessage))
				}
				if a.Notes != "" {
					fmt.Printf("    %s %s\n", labelStyle.Render("Notes:"), a.Notes)
				}
				if showLog {
					for _, step := range a.AutomationLog {
						fmt.Printf("      %s %s/%s: %s\n",
							step.Timestamp.Format("15:04:05"), step.Step, step.Action, step.Result)
					}
				}
			}
		}
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show today's activity summary",
	Run: func(cmd *cobra.Command, args []string) {
		user := mustUser()

		date, _ := cmd.Flags().GetString("date")
		if date == "" {
			date = time.Now().Format("2006-01-02")
		}

		s, err := database.GetDailySummary(user.ID, date)
		if err == app.ErrNotFound {
			fmt.Printf("No activity recorded for %s\n", date)
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching summary: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(titleStyle.Render("Daily Summary " + date))
		fmt.Printf("%s %d\n", labelStyle.Render("Jobs found:"), s.JobsFound)
		fmt.Printf("%s %d\n", labelStyle.Render("High scores:"), s.HighScoreJobs)
		fmt.Printf("%s %d\n", labelStyle.Render("Queued:"), s.Queued)
		fmt.Printf("%s %d\n", labelStyle.Render("Applied:"), s.Applied)
		fmt.Printf("%s %d\n", labelStyle.Render("Failed:"), s.Failed)
	},
}

func statusLabel(status string) string {
	switch status {
	case models.StatusQueued:
		return "⏳ Queued"
	case models.StatusGeneratingCover:
		return "✍  Generating Cover Letter"
	case models.StatusApplying:
		return "🌐 Applying"
	case models.StatusApplied:
		return "✓ Applied"
	case models.StatusFailed:
		return "✗ Failed"
	default:
		return status
	}
}

func init() {
	statusCmd.Flags().String("filter", "", "Only show applications with this status")
	statusCmd.Flags().Bool("log", false, "Include the automation step log")
	summaryCmd.Flags().String("date", "", "Date to show (YYYY-MM-DD, default today)")

	rootCmd.AddCommand(statusCmd, summaryCmd)
}
