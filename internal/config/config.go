package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"google-admin-bridge/types"
)

// DefaultEnvFile is where deployments mount their secrets
const DefaultEnvFile = "/credentials/.env"

// envBindings keeps the variable names the service has always been deployed with
var envBindings = map[string]string{
	"listenAddr":         "LISTEN_ADDR",
	"envFile":            "ENV_FILE",
	"serviceAccountFile": "SERVICE_ACCOUNT_SECRETS_FILE_PATH",
	"adminAccount":       "ADMIN_ACCOUNT",
	"domain":             "GOOGLE_DOMAIN",
	"privilegedGroup":    "PRIVILEGED_GROUP",
	"alumniOrgUnit":      "ALUMNI_ORG_UNIT",
	"slackToken":         "SLACK_TOKEN",
	"slackSigningSecret": "SLACK_SIGNING_SECRET",
	"slackChannelId":     "SLACK_CHANNEL_ID",
	"duoIKey":            "DUO_IKEY",
	"duoSKey":            "DUO_SKEY",
	"duoHost":            "DUO_HOST",
	"driveFolderId":      "DRIVE_FOLDER_ID",
	"logPath":            "LOG_PATH",
	"logMaxBytes":        "LOG_MAX_BYTES",
	"shutdownTimeout":    "SHUTDOWN_TIMEOUT",
	"dryRun":             "DRY_RUN",
}

// LoadWithOverrides loads configuration from the .env file, the environment and an
// optional config file, with command-line flag overrides applied last
func LoadWithOverrides(configPath string, flagOverrides map[string]interface{}) (*types.Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("google-admin-bridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/google-admin-bridge")
	}

	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	for key, value := range flagOverrides {
		switch val := value.(type) {
		case string:
			if val != "" {
				v.Set(key, value)
			}
		case int:
			if val != 0 {
				v.Set(key, value)
			}
		case int64:
			if val != 0 {
				v.Set(key, value)
			}
		case bool:
			if val {
				v.Set(key, value)
			}
		default:
			if value != nil {
				v.Set(key, value)
			}
		}
	}

	// envFile itself may come from a flag, ENV_FILE or the config file. The other
	// env bindings are resolved lazily, so variables loaded here are still seen by
	// Unmarshal. godotenv never overwrites variables already set in the process.
	if err := loadEnvFile(v.GetString("envFile")); err != nil {
		return nil, err
	}

	config := &types.Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "1.0")
	v.SetDefault("listenAddr", ":5000")
	v.SetDefault("envFile", DefaultEnvFile)
	v.SetDefault("alumniOrgUnit", "/Alumni")
	v.SetDefault("logPath", "app.log")
	v.SetDefault("logMaxBytes", 10*1024*1024)
	v.SetDefault("shutdownTimeout", "90s")
	v.SetDefault("dryRun", false)
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading env file %s: %w", path, err)
	}
	return nil
}

func validateConfig(config *types.Config) error {
	required := []struct {
		name  string
		value string
	}{
		{"serviceAccountFile", config.ServiceAccountFile},
		{"adminAccount", config.AdminAccount},
		{"domain", config.Domain},
		{"slackToken", config.SlackToken},
		{"slackSigningSecret", config.SlackSigningSecret},
		{"slackChannelId", config.SlackChannelID},
		{"duoIKey", config.DuoIKey},
		{"duoSKey", config.DuoSKey},
		{"duoHost", config.DuoHost},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	if strings.Contains(config.Domain, "@") {
		return fmt.Errorf("domain must be a bare domain name, got %q", config.Domain)
	}

	if !strings.HasPrefix(config.AlumniOrgUnit, "/") {
		return fmt.Errorf("alumniOrgUnit must be an absolute org unit path, got %q", config.AlumniOrgUnit)
	}

	if config.LogPath == "" {
		return fmt.Errorf("logPath is required")
	}

	if config.LogMaxBytes < 0 {
		return fmt.Errorf("logMaxBytes must be non-negative")
	}

	if config.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdownTimeout must be non-negative")
	}

	return nil
}
