package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/applypilot/applypilot/internal/app"
	"github.com/applypilot/applypilot/internal/database"
	"github.com/applypilot/applypilot/pkg/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginTop(1).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage your profile",
	Long:  "Create and update the profile used to fill application forms",
}

var profileInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize your profile with an interactive wizard",
	Run: func(cmd *cobra.Command, args []string) {
		user, err := database.GetUser()
		if err != nil && err != app.ErrNoProfile {
			fmt.Fprintf(os.Stderr, "Error checking for existing profile: %v\n", err)
			os.Exit(1)
		}

		if user != nil {
			fmt.Println(titleStyle.Render("Profile Already Exists"))
			fmt.Println("Use 'applypilot profile show' to view it.")
			return
		}

		fmt.Println(titleStyle.Render("Welcome to Applypilot! Let's set up your profile."))

		reader := bufio.NewReader(os.Stdin)

		fmt.Print(labelStyle.Render("Full Name: "))
		name, _ := reader.ReadString('\n')

		fmt.Print(labelStyle.Render("Email: "))
		email, _ := reader.ReadString('\n')

		fmt.Print(labelStyle.Render("Phone (optional): "))
		phone, _ := reader.ReadString('\n')

		fmt.Print(labelStyle.Render("Location: "))
		location, _ := reader.ReadString('\n')

		fmt.Print(labelStyle.Render("LinkedIn URL (optional): "))
		linkedin, _ := reader.ReadString('\n')

		fmt.Print(labelStyle.Render("GitHub URL (optional): "))
		github, _ := reader.ReadString('\n')

		user = &models.User{
			Name:        strings.TrimSpace(name),
			Email:       strings.TrimSpace(email),
			Phone:       strings.TrimSpace(phone),
			Location:    strings.TrimSpace(location),
			LinkedInURL: strings.TrimSpace(linkedin),
			GitHubURL:   strings.TrimSpace(github),
		}

		if err := database.CreateUser(user); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating profile: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(titleStyle.Render("\n✓ Profile created successfully!"))
		fmt.Println("Next steps:")
		fmt.Println("  1. Add skills: applypilot profile skill add \"Go\" --core")
		fmt.Println("  2. Add your resume: applypilot resume add /path/to/resume.pdf --primary")
		fmt.Println("  3. Set search preferences: applypilot prefs set --keywords \"golang,backend\"")
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display your profile information",
	Run: func(cmd *cobra.Command, args []string) {
		profile, err := database.GetCandidateProfile()
		if err == app.ErrNoProfile {
			fmt.Println("No profile yet. Run 'applypilot profile init' first.")
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching profile: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(titleStyle.Render("Your Profile"))
		fmt.Printf("%s %s\n", labelStyle.Render("Name:"), valueStyle.Render(profile.User.Name))
		fmt.Printf("%s %s\n", labelStyle.Render("Email:"), valueStyle.Render(profile.User.Email))
		if profile.User.Phone != "" {
			fmt.Printf("%s %s\n", labelStyle.Render("Phone:"), valueStyle.Render(profile.User.Phone))
		}
		fmt.Printf("%s %s\n", labelStyle.Render("Location:"), valueStyle.Render(profile.User.Location))
		if profile.User.LinkedInURL != "" {
			fmt.Printf("%s %s\n", labelStyle.Render("LinkedIn:"), valueStyle.Render(profile.User.LinkedInURL))
		}
		if profile.User.GitHubURL != "" {
			fmt.Printf("%s %s\n", labelStyle.Render("GitHub:"), valueStyle.Render(profile.User.GitHubURL))
		}

		if len(profile.Skills) > 0 {
			fmt.Printf("%s %s\n", labelStyle.Render("Skills:"), strings.Join(profile.SkillNames(), ", "))
		}

		if len(profile.Experiences) > 0 {
			fmt.Println(labelStyle.Render("\nExperience:"))
			for _, exp := range profile.Experiences {
				end := "present"
				if exp.EndDate != nil {
					end = exp.EndDate.Format("2006-01")
				}
				fmt.Printf("  • %s at %s (%s to %s)\n", exp.Title, exp.Company,
					exp.StartDate.Format("2006-01"), end)
			}
		}

		if len(profile.Education) > 0 {
			fmt.Println(labelStyle.Render("\nEducation:"))
			for _, edu := range profile.Education {
				fmt.Printf("  • %s, %s\n", edu.Degree, edu.School)
			}
		}

		if profile.Resume != nil {
			fmt.Printf("\n%s %s (%s)\n", labelStyle.Render("Primary Resume:"),
				profile.Resume.Name, profile.Resume.FilePath)
		} else {
			fmt.Println(errorStyle.Render("\nNo primary resume set. Forms that require an upload will fail."))
		}
	},
}

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Manage skills",
}

var skillAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a skill to your profile",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		user := mustUser()
		core, _ := cmd.Flags().GetBool("core")

		skill := &models.Skill{UserID: user.ID, SkillName: args[0], IsCore: core}
		if err := database.CreateSkill(skill); err != nil {
			fmt.Fprintf(os.Stderr, "Error adding skill: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Added skill %q\n", args[0])
	},
}

var skillRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a skill by id",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "Invalid skill id")
			os.Exit(1)
		}
		if err := database.DeleteSkill(id); err != nil {
			fmt.Fprintf(os.Stderr, "Error removing skill: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✓ Skill removed")
	},
}

var experienceCmd = &cobra.Command{
	Use:   "experience",
	Short: "Manage work experience",
}

var experienceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a work experience entry",
	Run: func(cmd *cobra.Command, args []string) {
		user := mustUser()
		company, _ := cmd.Flags().GetString("company")
		title, _ := cmd.Flags().GetString("title")
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")

		if company == "" || title == "" || start == "" {
			fmt.Fprintln(os.Stderr, "--company, --title and --start are required")
			os.Exit(1)
		}

		startDate, err := time.Parse("2006-01", start)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Invalid --start, expected YYYY-MM")
			os.Exit(1)
		}

		exp := &models.Experience{
			UserID:    user.ID,
			Company:   company,
			Title:     title,
			StartDate: startDate,
		}
		if end != "" {
			endDate, err := time.Parse("2006-01", end)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Invalid --end, expected YYYY-MM")
				os.Exit(1)
			}
			exp.EndDate = &endDate
		}

		if err := database.CreateExperience(exp); err != nil {
			fmt.Fprintf(os.Stderr, "Error adding experience: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Added %s at %s\n", title, company)
	},
}

var educationCmd = &cobra.Command{
	Use:   "education",
	Short: "Manage education entries",
}

var educationAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an education entry",
	Run: func(cmd *cobra.Command, args []string) {
		user := mustUser()
		school, _ := cmd.Flags().GetString("school")
		degree, _ := cmd.Flags().GetString("degree")
		dates, _ := cmd.Flags().GetString("dates")

		if school == "" {
			fmt.Fprintln(os.Stderr, "--school is required")
			os.Exit(1)
		}

		edu := &models.Education{UserID: user.ID, School: school, Degree: degree, Dates: dates}
		if err := database.CreateEducation(edu); err != nil {
			fmt.Fprintf(os.Stderr, "Error adding education: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Added %s\n", school)
	},
}

// mustUser fetches the profile user or exits with guidance.
func mustUser() *models.User {
	user, err := database.GetUser()
	if err == app.ErrNoProfile {
		fmt.Println("No profile yet. Run 'applypilot profile init' first.")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching profile: %v\n", err)
		os.Exit(1)
	}
	return user
}

func init() {
	skillAddCmd.Flags().Bool("core", false, "Mark as a core skill (weighs more in scoring)")

	experienceAddCmd.Flags().String("company", "", "Company name")
	experienceAddCmd.Flags().String("title", "", "Job title")
	experienceAddCmd.Flags().String("start", "", "Start date (YYYY-MM)")
	experienceAddCmd.Flags().String("end", "", "End date (YYYY-MM), omit for current role")

	educationAddCmd.Flags().String("school", "", "School name")
	educationAddCmd.Flags().String("degree", "", "Degree")
	educationAddCmd.Flags().String("dates", "", "Attendance dates")

	skillCmd.AddCommand(skillAddCmd, skillRemoveCmd)
	experienceCmd.AddCommand(experienceAddCmd)
	educationCmd.AddCommand(educationAddCmd)
	profileCmd.AddCommand(profileInitCmd, profileShowCmd, skillCmd, experienceCmd, educationCmd)
	rootCmd.AddCommand(profileCmd)
}
