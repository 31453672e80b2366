package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
)

// Config holds runtime settings for the notekeeper CLI.
type Config struct {
	// ServerURL is the base URL of the notes API.
	ServerURL string `mapstructure:"server_url"`
	// DatabasePath is the SQLite file holding the local copy.
	DatabasePath        string        `mapstructure:"database_path"`
	PageSize            int           `mapstructure:"page_size"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	OnlineCheckInterval time.Duration `mapstructure:"online_check_interval"`
	Verbose             bool          `mapstructure:"verbose"`
	Backup              BackupConfig  `mapstructure:"backup"`
}

// BackupConfig points at an S3-compatible bucket. Backups are disabled while
// Bucket is empty.
type BackupConfig struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.DatabasePath = "notekeeper.db"
	c.PageSize = 6
	c.RequestTimeout = 10 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.Verbose = false
	c.Backup = BackupConfig{Region: "us-east-1"}
}

// LoadConfig builds a Config from defaults, the optional config file
// (-c/-config), NOTEKEEPER_* environment variables and command-line flags.
// Later sources take precedence. It panics on malformed input.
func LoadConfig() *Config {
	cfg, err := load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, flagx.ConfigFile(args)); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
