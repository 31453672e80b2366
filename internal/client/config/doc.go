// Package config loads runtime configuration for the notekeeper CLI.
//
// Sources, in increasing precedence:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file selected with -c or -config.
//  3. NOTEKEEPER_* environment variables, e.g. NOTEKEEPER_SERVER_URL or
//     NOTEKEEPER_BACKUP_BUCKET.
//  4. Command-line flags.
//
// Durations in files and the environment use Go syntax ("3s", "1m").
//
//	server_url: http://127.0.0.1:8000
//	database_path: notekeeper.db
//	page_size: 6
//	request_timeout: 10s
//	online_check_interval: 3s
//	backup:
//	  bucket: notes-backup
//	  endpoint: http://127.0.0.1:9000
package config
