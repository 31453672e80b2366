package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "NOTEKEEPER"

// parseFile overlays cfg with the config file at path (JSON or YAML, chosen
// by extension) and with environment variables. An empty path skips the
// file but still applies the environment.
func parseFile(cfg *Config, path string) error {
	v := viper.New()

	v.SetDefault("server_url", cfg.ServerURL)
	v.SetDefault("database_path", cfg.DatabasePath)
	v.SetDefault("page_size", cfg.PageSize)
	v.SetDefault("request_timeout", cfg.RequestTimeout)
	v.SetDefault("online_check_interval", cfg.OnlineCheckInterval)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("backup.bucket", cfg.Backup.Bucket)
	v.SetDefault("backup.region", cfg.Backup.Region)
	v.SetDefault("backup.endpoint", cfg.Backup.Endpoint)
	v.SetDefault("backup.access_key", cfg.Backup.AccessKey)
	v.SetDefault("backup.secret_key", cfg.Backup.SecretKey)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("invalid configuration format: %w", err)
	}
	return nil
}
