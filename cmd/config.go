package cmd

import (
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/applypilot/applypilot/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  "View and update configuration settings",
}

func keyStatus(v string) string {
	if v != "" {
		return "✓ Configured"
	}
	return "✗ Not configured"
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.AppConfig

		fmt.Println(titleStyle.Render("Configuration"))
		fmt.Printf("%s %s\n", labelStyle.Render("Config File:"), config.GetConfigPath())
		fmt.Printf("%s %s\n", labelStyle.Render("AI Provider:"), cfg.AIProvider)
		fmt.Printf("%s %s\n", labelStyle.Render("Default Model:"), cfg.DefaultModel)
		fmt.Printf("%s %s\n", labelStyle.Render("OpenAI Key:"), keyStatus(cfg.OpenAIKey))
		fmt.Printf("%s %s\n", labelStyle.Render("Anthropic Key:"), keyStatus(cfg.AnthropicKey))
		fmt.Printf("%s %s\n", labelStyle.Render("Browser Backend:"), cfg.BrowserBackend)
		if cfg.BrowserBackend == "gateway" {
			fmt.Printf("%s %s\n", labelStyle.Render("Gateway URL:"), cfg.GatewayURL)
			fmt.Printf("%s %s\n", labelStyle.Render("Gateway Token:"), keyStatus(cfg.GatewayToken))
		}
		fmt.Printf("%s %s\n", labelStyle.Render("Adzuna:"), keyStatus(cfg.AdzunaAppKey))
		fmt.Printf("%s %s\n", labelStyle.Render("Mailbox:"), keyStatus(cfg.MailboxURL))
		fmt.Printf("%s %.1f req/s\n", labelStyle.Render("Source Rate:"), cfg.SourceRateLimit)
		fmt.Printf("%s %s\n", labelStyle.Render("Log Level:"), cfg.LogLevel)
	},
}

var validConfigKeys = []string{
	"ai_provider", "default_model", "openai_key", "anthropic_key",
	"ollama_url", "lmstudio_url",
	"browser_backend", "gateway_url", "gateway_token",
	"adzuna_app_id", "adzuna_app_key", "adzuna_country",
	"mailbox_url", "mailbox_token",
	"source_rate_limit", "log_level",
}

var setConfigCmd = &cobra.Command{
	Use:   "set",
	Short: "Update a configuration value",
	Example: `  applypilot config set --key anthropic_key --value sk-...
  applypilot config set --key ai_provider --value anthropic
  applypilot config set --key browser_backend --value gateway
  applypilot config set --key gateway_url --value ws://localhost:18789`,
	Run: func(cmd *cobra.Command, args []string) {
		key, _ := cmd.Flags().GetString("key")
		value, _ := cmd.Flags().GetString("value")

		if key == "" || value == "" {
			fmt.Println("Both --key and --value are required")
			return
		}

		if !lo.Contains(validConfigKeys, key) {
			fmt.Fprintf(os.Stderr, "Unknown key %q. Valid keys: %v\n", key, validConfigKeys)
			os.Exit(1)
		}

		if err := config.Set(key, value); err != nil {
			fmt.Fprintf(os.Stderr, "Error updating config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ %s updated\n", key)
	},
}

func init() {
	setConfigCmd.Flags().String("key", "", "Configuration key")
	setConfigCmd.Flags().String("value", "", "New value")

	configCmd.AddCommand(showConfigCmd, setConfigCmd)
	rootCmd.AddCommand(configCmd)
}
