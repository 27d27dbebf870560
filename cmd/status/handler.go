package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"google-admin-bridge/internal/config"
	"google-admin-bridge/internal/logging"
	"google-admin-bridge/types"
)

func NewStatusCommand(verbose *bool, configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the bridge configuration and local files",
		Long: `Validate the Google admin bridge setup:
- Configuration and .env loading
- Service account key file
- Log file writability and size against the rotation threshold`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatusCheck(*verbose, *configPath)
		},
	}

	return cmd
}

func runStatusCheck(verbose bool, configPath string) error {
	logger := logging.SetupLogger(verbose, "")

	fmt.Println("Google Admin Bridge Status Check")
	fmt.Println(strings.Repeat("=", 40))

	allChecksPass := true

	fmt.Print("Configuration... ")
	cfg, err := config.LoadWithOverrides(configPath, nil)
	if err != nil {
		fmt.Println("INVALID")
		logger.WithError(err).Error("Failed to load configuration")
		fmt.Println(strings.Repeat("=", 40))
		return fmt.Errorf("system validation failed")
	}
	fmt.Println("VALID")

	fmt.Print("Service account key... ")
	if checkServiceAccount(cfg.ServiceAccountFile, logger) {
		fmt.Println("PRESENT")
	} else {
		fmt.Println("INVALID")
		allChecksPass = false
	}

	fmt.Print("Log file... ")
	size, ok := checkLogFile(cfg.LogPath, logger)
	if ok {
		fmt.Println("WRITABLE")
	} else {
		fmt.Println("NOT WRITABLE")
		allChecksPass = false
	}

	fmt.Print("Log rotation... ")
	switch {
	case cfg.DriveFolderID == "" || cfg.LogMaxBytes <= 0:
		fmt.Println("DISABLED")
	case size >= cfg.LogMaxBytes:
		fmt.Printf("DUE (%d/%d bytes)\n", size, cfg.LogMaxBytes)
	default:
		fmt.Printf("OK (%d/%d bytes)\n", size, cfg.LogMaxBytes)
	}

	printSummary(cfg)
	fmt.Println(strings.Repeat("=", 40))

	if !allChecksPass {
		fmt.Println("Some checks failed. Please review the issues above.")
		return fmt.Errorf("system validation failed")
	}
	fmt.Println("All checks passed.")
	return nil
}

func checkServiceAccount(path string, logger *logrus.Logger) bool {
	logger.WithField("path", path).Debug("Checking service account key")

	data, err := os.ReadFile(path)
	if err != nil {
		logger.WithError(err).WithField("path", path).Error("Cannot read service account key")
		return false
	}

	var key struct {
		Type        string `json:"type"`
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
	}
	if err := json.Unmarshal(data, &key); err != nil {
		logger.WithError(err).Error("Service account key is not valid JSON")
		return false
	}
	if key.Type != "service_account" || key.ClientEmail == "" || key.PrivateKey == "" {
		logger.WithField("type", key.Type).Error("Service account key is incomplete")
		return false
	}

	logger.WithField("client_email", key.ClientEmail).Debug("Service account key looks valid")
	return true
}

// checkLogFile reports the current size of the log and whether it can be appended to.
// A missing file is fine as long as it can be created.
func checkLogFile(logPath string, logger *logrus.Logger) (int64, bool) {
	logger.WithField("path", logPath).Debug("Checking log file")

	var size int64
	info, err := os.Stat(logPath)
	switch {
	case err == nil:
		size = info.Size()
	case errors.Is(err, fs.ErrNotExist):
		logger.WithField("path", logPath).Debug("Log file does not exist yet")
	default:
		logger.WithError(err).Error("Cannot stat log file")
		return 0, false
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger.WithError(err).WithField("path", logPath).Error("Cannot write to log file")
		return size, false
	}
	file.Close()

	return size, true
}

func printSummary(cfg *types.Config) {
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Listen address:   %s\n", cfg.ListenAddr)
	fmt.Printf("Domain:           %s\n", cfg.Domain)
	fmt.Printf("Privileged group: %s\n", cfg.GetPrivilegedGroup())
	fmt.Printf("Alumni org unit:  %s\n", cfg.AlumniOrgUnit)
	fmt.Printf("Admin account:    %s\n", cfg.AdminAccount)
	fmt.Printf("Duo host:         %s\n", cfg.DuoHost)
	fmt.Printf("Dry run:          %t\n", cfg.DryRun)
}
