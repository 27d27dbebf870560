package types

import (
	"strings"
	"time"
)

// Config holds the bridge configuration
type Config struct {
	Version            string        `json:"version" yaml:"version"`
	ListenAddr         string        `json:"listenAddr" yaml:"listenAddr"`
	EnvFile            string        `json:"envFile" yaml:"envFile"`
	ServiceAccountFile string        `json:"serviceAccountFile" yaml:"serviceAccountFile"` // Google service account key (JSON)
	AdminAccount       string        `json:"adminAccount" yaml:"adminAccount"`             // Workspace admin impersonated by the service account
	Domain             string        `json:"domain" yaml:"domain"`
	PrivilegedGroup    string        `json:"privilegedGroup" yaml:"privilegedGroup"`
	AlumniOrgUnit      string        `json:"alumniOrgUnit" yaml:"alumniOrgUnit"`
	SlackToken         string        `json:"slackToken" yaml:"slackToken"`
	SlackSigningSecret string        `json:"slackSigningSecret" yaml:"slackSigningSecret"`
	SlackChannelID     string        `json:"slackChannelId" yaml:"slackChannelId"`
	DuoIKey            string        `json:"duoIKey" yaml:"duoIKey"`
	DuoSKey            string        `json:"duoSKey" yaml:"duoSKey"`
	DuoHost            string        `json:"duoHost" yaml:"duoHost"`
	DriveFolderID      string        `json:"driveFolderId" yaml:"driveFolderId"`
	LogPath            string        `json:"logPath" yaml:"logPath"`
	LogMaxBytes        int64         `json:"logMaxBytes" yaml:"logMaxBytes"`
	ShutdownTimeout    time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`
	DryRun             bool          `json:"dryRun" yaml:"dryRun"` // If true, log directory mutations but don't apply them
}

// GetLogPath returns the local log file path
func (c *Config) GetLogPath() string {
	return c.LogPath
}

// GetPrivilegedGroup returns the configured group key, or it@{domain} when unset
func (c *Config) GetPrivilegedGroup() string {
	if g := strings.TrimSpace(c.PrivilegedGroup); g != "" {
		return g
	}
	return "it@" + c.Domain
}
