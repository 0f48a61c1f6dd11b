// Package config loads runtime configuration for the feedsync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with --config / -c.
//  3. Command-line flags actually given, which override earlier values.
//
// Flags are registered on a pflag.FlagSet by Bind, usually the persistent
// flags of the root cobra command, and resolved with (*Binding).Resolve once
// cobra has parsed them.
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "120s"
// or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:9999",
//	  "database_path": "feedsync.db",
//	  "page_size": 5,
//	  "newer_poll_interval": "120s",
//	  "request_timeout": "30s",
//	  "log_level": "info",
//	  "log_format": "text",
//	  "media": {"bucket": "feed", "region": "us-east-1", "endpoint": "http://127.0.0.1:9000"}
//	}
//
// S3 credentials are read from the JSON file only (media.access_key,
// media.secret_key); without them the default AWS credential chain is used.
package config
