package main

import (
	"os"

	"github.com/spf13/cobra"

	"google-admin-bridge/cmd/command"
	"google-admin-bridge/cmd/sign"
	"google-admin-bridge/cmd/start"
	"google-admin-bridge/cmd/status"
	"google-admin-bridge/cmd/version"
)

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "google-admin-bridge",
	Short: "Slack slash command bridge for Google Workspace user administration",
	Long: `google-admin-bridge receives the /google Slack slash command, confirms the
invoking user with a Duo push and then suspends, unsuspends or offboards the
target Google Workspace account. Every outcome is logged locally and mirrored
to a Slack channel.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	rootCmd.AddCommand(start.NewStartCommand(&verbose, &configPath))
	rootCmd.AddCommand(command.NewCommandCommand(&verbose, &configPath))
	rootCmd.AddCommand(sign.NewSignCommand(&verbose, &configPath))
	rootCmd.AddCommand(status.NewStatusCommand(&verbose, &configPath))
	rootCmd.AddCommand(version.NewVersionCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
