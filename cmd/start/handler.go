package start

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"google-admin-bridge/cmd/version"
	"google-admin-bridge/internal/client"
	"google-admin-bridge/internal/config"
	"google-admin-bridge/internal/logging"
)

// NewStartCommand creates the start command
func NewStartCommand(verbose *bool, configPath *string) *cobra.Command {
	var (
		listenAddr    string
		envFile       string
		logPath       string
		driveFolderID string
		logMaxBytes   int64
		dryRun        bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Serve the /google slash command webhook",
		Long: `Start the HTTP listener that receives Slack slash commands, verifies them,
challenges the invoking user with a Duo push and applies the requested change
to the Google Workspace directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(*verbose, *configPath, listenAddr, envFile, logPath, driveFolderID, logMaxBytes, dryRun)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "Address to listen on (default :5000)")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to the .env file with credentials (default "+config.DefaultEnvFile+")")
	cmd.Flags().StringVar(&logPath, "log-path", "", "Path of the local log file")
	cmd.Flags().StringVar(&driveFolderID, "drive-folder", "", "Drive folder that receives rotated logs")
	cmd.Flags().Int64Var(&logMaxBytes, "log-max-bytes", 0, "Rotate the log file once it reaches this size")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log directory updates but don't apply them (safe testing mode)")

	return cmd
}

func runStart(verbose bool, configPath, listenAddr, envFile, logPath, driveFolderID string, logMaxBytes int64, dryRun bool) error {
	flagOverrides := map[string]interface{}{
		"listenAddr":    listenAddr,
		"envFile":       envFile,
		"logPath":       logPath,
		"driveFolderId": driveFolderID,
		"logMaxBytes":   logMaxBytes,
		"dryRun":        dryRun,
	}

	cfg, err := config.LoadWithOverrides(configPath, flagOverrides)
	if err != nil {
		logger := logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		}
		logger.WithError(err).Error("Failed to load configuration")
		return err
	}

	logger := logging.SetupLoggerFromConfig(verbose, cfg)

	bridge, err := client.New(context.Background(), cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create bridge")
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig, ok := <-sigChan
		if !ok {
			return
		}
		logger.WithField("signal", sig.String()).Info("Received shutdown signal, shutting down gracefully...")
		bridge.Shutdown()
	}()

	logger.WithFields(logrus.Fields{
		"version":         version.GetVersion(),
		"configVersion":   cfg.Version,
		"listenAddr":      cfg.ListenAddr,
		"domain":          cfg.Domain,
		"privilegedGroup": cfg.GetPrivilegedGroup(),
		"alumniOrgUnit":   cfg.AlumniOrgUnit,
		"logPath":         cfg.LogPath,
		"logMaxBytes":     cfg.LogMaxBytes,
		"rotation":        cfg.DriveFolderID != "",
		"dryRun":          cfg.DryRun,
	}).Info("Starting Google admin bridge")

	if err := bridge.Run(); err != nil {
		logger.WithError(err).Error("Google admin bridge stopped with error")
		return err
	}

	logger.Info("Google admin bridge stopped")
	return nil
}
