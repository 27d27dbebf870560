package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"

	"google-admin-bridge/internal/client"
	"google-admin-bridge/internal/config"
	"google-admin-bridge/internal/logging"
	"google-admin-bridge/internal/pipeline"
)

func NewCommandCommand(verbose *bool, configPath *string) *cobra.Command {
	var (
		userName  string
		text      string
		requestID string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "command",
		Short: "Run a slash command locally for testing",
		Long: `Run a /google slash command through the full pipeline without Slack.
Permission checks, the Duo push and the directory update all happen as they would
for a real invocation; replies that would go to Slack are printed instead.
Use --dry-run to skip the directory update.`,
		Example: `  google-admin-bridge command --user alice --text "suspend jdoe" --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(*verbose, *configPath, userName, text, requestID, dryRun)
		},
	}

	cmd.Flags().StringVar(&userName, "user", "", "Slack user name of the invoker")
	cmd.Flags().StringVar(&text, "text", "", "Command text, e.g. \"suspend jdoe\"")
	cmd.Flags().StringVar(&requestID, "request-id", "", "Request ID for tracking (auto-generated if empty)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log directory updates but don't apply them (safe testing mode)")

	cmd.MarkFlagRequired("user")

	return cmd
}

func runCommand(verbose bool, configPath, userName, text, requestID string, dryRun bool) error {
	cfg, err := config.LoadWithOverrides(configPath, map[string]interface{}{"dryRun": dryRun})
	if err != nil {
		logger := logrus.New()
		logger.WithError(err).Error("Failed to load configuration")
		return err
	}

	logger := logging.SetupLoggerFromConfig(verbose, cfg)

	if requestID == "" {
		requestID = uuid.NewString()
	}

	bridge, err := client.New(context.Background(), cfg, logger, client.WithResponder(&printResponder{out: os.Stdout}))
	if err != nil {
		logger.WithError(err).Error("Failed to create bridge")
		return err
	}

	logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"user":       userName,
		"text":       text,
		"dry_run":    cfg.DryRun,
	}).Info("Executing slash command locally")

	err = bridge.Pipeline().Run(context.Background(), pipeline.Invocation{
		RequestID:   requestID,
		User:        userName,
		Text:        text,
		ResponseURL: "stdout",
		SourceIP:    []string{"local"},
	})
	if err != nil {
		return fmt.Errorf("command failed: %w", err)
	}

	if cfg.DryRun {
		fmt.Println("DRY-RUN: No actual changes were made to the directory")
	}
	return nil
}

// printResponder writes callback payloads to out instead of a response URL.
type printResponder struct {
	out io.Writer
}

func (p *printResponder) Respond(_ context.Context, _ string, msg *slack.WebhookMessage) error {
	if msg.Text != "" && len(msg.Attachments) == 0 {
		_, err := fmt.Fprintf(p.out, "> %s\n", msg.Text)
		return err
	}

	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(p.out, "%s\n%s\n", strings.Repeat("=", 30), data)
	return err
}
