package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/applypilot/applypilot/internal/database"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Manage search and auto-apply preferences",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current preferences",
	Run: func(cmd *cobra.Command, args []string) {
		user := mustUser()

		prefs, err := database.GetPreferences(user.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching preferences: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(titleStyle.Render("Preferences"))
		fmt.Printf("%s %s\n", labelStyle.Render("Keywords:"), strings.Join(prefs.Keywords, ", "))
		fmt.Printf("%s %s\n", labelStyle.Render("Excluded:"), strings.Join(prefs.ExcludedKeywords, ", "))
		fmt.Printf("%s %s\n", labelStyle.Render("Location:"), prefs.Location)
		fmt.Printf("%s %v\n", labelStyle.Render("Remote OK:"), prefs.RemoteOK)
		sourcesLabel := strings.Join(prefs.EnabledSources, ", ")
		if sourcesLabel == "" {
			sourcesLabel = "all"
		}
		fmt.Printf("%s %s\n", labelStyle.Render("Sources:"), sourcesLabel)
		fmt.Printf("%s %v\n", labelStyle.Render("Auto-apply:"), prefs.AutoApplyEnabled)
		fmt.Printf("%s %d\n", labelStyle.Render("Min score:"), prefs.AutoApplyMinScore)
		fmt.Printf("%s %d\n", labelStyle.Render("Daily cap:"), prefs.MaxDailyApplications)
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update preferences",
	Example: `  applypilot prefs set --keywords "golang,backend" --location "Remote"
  applypilot prefs set --auto-apply --min-score 75 --max-daily 5
  applypilot prefs set --sources "remoteok,hnhiring"`,
	Run: func(cmd *cobra.Command, args []string) {
		user := mustUser()

		prefs, err := database.GetPreferences(user.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching preferences: %v\n", err)
			os.Exit(1)
		}

		if cmd.Flags().Changed("keywords") {
			v, _ := cmd.Flags().GetString("keywords")
			prefs.Keywords = splitFlag(v)
		}
		if cmd.Flags().Changed("excluded") {
			v, _ := cmd.Flags().GetString("excluded")
			prefs.ExcludedKeywords = splitFlag(v)
		}
		if cmd.Flags().Changed("location") {
			prefs.Location, _ = cmd.Flags().GetString("location")
		}
		if cmd.Flags().Changed("remote") {
			prefs.RemoteOK, _ = cmd.Flags().GetBool("remote")
		}
		if cmd.Flags().Changed("sources") {
			v, _ := cmd.Flags().GetString("sources")
			prefs.EnabledSources = splitFlag(v)
		}
		if cmd.Flags().Changed("auto-apply") {
			prefs.AutoApplyEnabled, _ = cmd.Flags().GetBool("auto-apply")
		}
		if cmd.Flags().Changed("min-score") {
			prefs.AutoApplyMinScore, _ = cmd.Flags().GetInt("min-score")
		}
		if cmd.Flags().Changed("max-daily") {
			prefs.MaxDailyApplications, _ = cmd.Flags().GetInt("max-daily")
		}

		if err := database.SavePreferences(prefs); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving preferences: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("✓ Preferences updated")
		if prefs.AutoApplyEnabled {
			fmt.Println(errorStyle.Render("Auto-apply is ON. Applications will be submitted to real employers."))
			fmt.Println("Review screening answers in the config file before the next run.")
		}
	},
}

func splitFlag(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func init() {
	prefsSetCmd.Flags().String("keywords", "", "Comma-separated search keywords")
	prefsSetCmd.Flags().String("excluded", "", "Comma-separated keywords that lower a listing's score")
	prefsSetCmd.Flags().String("location", "", "Preferred location")
	prefsSetCmd.Flags().Bool("remote", true, "Accept remote positions")
	prefsSetCmd.Flags().String("sources", "", "Comma-separated job boards (empty = all)")
	prefsSetCmd.Flags().Bool("auto-apply", false, "Queue high-scoring listings automatically")
	prefsSetCmd.Flags().Int("min-score", 70, "Minimum match score for auto-apply")
	prefsSetCmd.Flags().Int("max-daily", 10, "Maximum applications submitted per day")

	prefsCmd.AddCommand(prefsShowCmd, prefsSetCmd)
	rootCmd.AddCommand(prefsCmd)
}
