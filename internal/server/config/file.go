package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "NOTEKEEPER_SERVER"

func parseFile(cfg *Config, path string) error {
	v := viper.New()

	v.SetDefault("listen_addr", cfg.ListenAddr)
	v.SetDefault("database_dsn", cfg.DatabaseDSN)
	v.SetDefault("secret_key", cfg.SecretKey)
	v.SetDefault("access_token_validity", cfg.AccessTokenValidityDuration)
	v.SetDefault("refresh_token_validity", cfg.RefreshTokenValidityDuration)
	v.SetDefault("public_base_url", cfg.PublicBaseURL)
	v.SetDefault("max_page_size", cfg.MaxPageSize)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)

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
