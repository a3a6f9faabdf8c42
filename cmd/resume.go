package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/applypilot/applypilot/internal/database"
	"github.com/applypilot/applypilot/pkg/models"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Manage resumes",
	Long:  "Register resume files used for application form uploads",
}

var resumeAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Register a resume file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		user := mustUser()

		path, err := filepath.Abs(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid path: %v\n", err)
			os.Exit(1)
		}
		if _, err := os.Stat(path); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot read %s: %v\n", path, err)
			os.Exit(1)
		}

		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = filepath.Base(path)
		}
		primary, _ := cmd.Flags().GetBool("primary")

		resume := &models.Resume{
			UserID:    user.ID,
			Name:      name,
			FilePath:  path,
			IsPrimary: primary,
		}
		if err := database.CreateResume(resume); err != nil {
			fmt.Fprintf(os.Stderr, "Error adding resume: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("✓ Added resume %q (id %d)\n", name, resume.ID)
		if primary {
			fmt.Println("  Set as primary resume for applications.")
		}
	},
}

var resumeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered resumes",
	Run: func(cmd *cobra.Command, args []string) {
		user := mustUser()

		resumes, err := database.GetAllResumes(user.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching resumes: %v\n", err)
			os.Exit(1)
		}
		if len(resumes) == 0 {
			fmt.Println("No resumes yet. Add one with 'applypilot resume add /path/to/resume.pdf'")
			return
		}

		fmt.Println(titleStyle.Render("Resumes"))
		for _, r := range resumes {
			marker := " "
			if r.IsPrimary {
				marker = "*"
			}
			fmt.Printf("%s %d. %s (%s)\n", marker, r.ID, r.Name, r.FilePath)
		}
	},
}

var resumePrimaryCmd = &cobra.Command{
	Use:   "primary <id>",
	Short: "Set the primary resume",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		user := mustUser()

		id, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "Invalid resume id")
			os.Exit(1)
		}
		if err := database.SetPrimaryResume(user.ID, id); err != nil {
			fmt.Fprintf(os.Stderr, "Error setting primary resume: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✓ Primary resume updated")
	},
}

func init() {
	resumeAddCmd.Flags().String("name", "", "Display name (defaults to the file name)")
	resumeAddCmd.Flags().Bool("primary", false, "Use this resume for applications")

	resumeCmd.AddCommand(resumeAddCmd, resumeListCmd, resumePrimaryCmd)
	rootCmd.AddCommand(resumeCmd)
}
