// Package logging builds the logrus logger shared by the HTTP server, the
// background tasks and the CLI.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// SetupLogger returns a logger writing to stdout and, when logPath can be opened,
// appending to logPath as well.
func SetupLogger(verbose bool, logPath string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
	})

	level := logrus.InfoLevel
	if verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	if logPath == "" {
		return logger
	}

	logFile, err := openLogFile(logPath)
	if err != nil {
		logger.WithError(err).WithField("log_path", logPath).Warn("Failed to open log file, using stdout only")
		return logger
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, logFile))
	logger.WithField("log_file", logPath).Debug("Logging to file and stdout")
	return logger
}

// openLogFile must use O_APPEND: the rotator truncates the file underneath the
// open descriptor and the next write has to land at offset 0.
func openLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// SetupLoggerFromConfig uses the configured log path.
func SetupLoggerFromConfig(verbose bool, config interface{ GetLogPath() string }) *logrus.Logger {
	if config == nil {
		return SetupLogger(verbose, "")
	}
	return SetupLogger(verbose, config.GetLogPath())
}
