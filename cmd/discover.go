package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/applypilot/applypilot/internal/database"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Search job boards and score new listings",
	Long: `Discover pulls fresh postings from every enabled board, scores them
against your profile, and stores new ones. Listings already seen are
skipped without rescoring.`,
	Run: func(cmd *cobra.Command, args []string) {
		a := appFromCmd(cmd)

		orch, err := buildOrchestrator(a)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Searching job boards...")
		res, err := orch.Discover(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Discovery failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(titleStyle.Render("Discovery Results"))
		fmt.Printf("%s %d\n", labelStyle.Render("Postings found:"), res.Found)
		fmt.Printf("%s %d\n", labelStyle.Render("New listings:"), res.New)
		fmt.Printf("%s %d\n", labelStyle.Render("High scores:"), res.HighScore)
		if res.Queued > 0 {
			fmt.Printf("%s %d\n", labelStyle.Render("Auto-queued:"), res.Queued)
		}
		for _, e := range res.Errors {
			fmt.Println(errorStyle.Render(fmt.Sprintf("  %s failed: %v", e.Source, e.Err)))
		}
	},
}

var listingsCmd = &cobra.Command{
	Use:   "listings",
	Short: "Show discovered listings",
	Run: func(cmd *cobra.Command, args []string) {
		user := mustUser()
		minScore, _ := cmd.Flags().GetInt("min-score")

		listings, err := database.ListListings(user.ID, minScore)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching listings: %v\n", err)
			os.Exit(1)
		}
		if len(listings) == 0 {
			fmt.Println("No listings yet. Run 'applypilot discover' first.")
			return
		}

		fmt.Println(titleStyle.Render("Listings"))
		for _, l := range listings {
			fmt.Printf("%3d  [%3d] %s at %s\n", l.ID, l.MatchScore, l.Job.Title, l.Job.Company)
			fmt.Printf("           %s | %s\n", l.Job.SourceName, l.Job.CanonicalURL)
		}
	},
}

var dismissCmd = &cobra.Command{
	Use:   "dismiss <listing-id>",
	Short: "Hide a listing from future views",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := parseID(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "Invalid listing id")
			os.Exit(1)
		}
		if err := database.DismissListing(id); err != nil {
			fmt.Fprintf(os.Stderr, "Error dismissing listing: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✓ Listing dismissed")
	},
}

func init() {
	listingsCmd.Flags().Int("min-score", 0, "Only show listings at or above this score")

	rootCmd.AddCommand(discoverCmd, listingsCmd, dismissCmd)
}
