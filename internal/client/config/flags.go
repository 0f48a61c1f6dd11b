package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Binding ties a Config to a pflag.FlagSet. Flag values are kept apart from
// the resolved Config so that only flags given on the command line override
// the JSON file.
type Binding struct {
	fs    *pflag.FlagSet
	path  string
	flags Config
}

// Bind registers the configuration flags on fs.
func Bind(fs *pflag.FlagSet) *Binding {
	b := &Binding{fs: fs}
	b.flags.LoadDefaults()

	fs.StringVarP(&b.path, "config", "c", "", "path to a JSON config file")
	fs.StringVarP(&b.flags.ServerURL, "server", "a", b.flags.ServerURL, "base URL of the feed server")
	fs.StringVar(&b.flags.DatabasePath, "db", b.flags.DatabasePath, "path to the local SQLite database")
	fs.IntVar(&b.flags.PageSize, "page-size", b.flags.PageSize, "posts per page")
	fs.DurationVar(&b.flags.NewerPollInterval, "poll-interval", b.flags.NewerPollInterval, "interval between newer posts checks")
	fs.DurationVar(&b.flags.RequestTimeout, "timeout", b.flags.RequestTimeout, "timeout of a single server request")
	fs.StringVar(&b.flags.LogLevel, "log-level", b.flags.LogLevel, "debug, info, warn or error")
	fs.StringVar(&b.flags.LogFormat, "log-format", b.flags.LogFormat, "text or json")
	fs.StringVar(&b.flags.MediaBucket, "media-bucket", "", "upload attachments to this S3 bucket")
	fs.StringVar(&b.flags.MediaRegion, "media-region", b.flags.MediaRegion, "region of the media bucket")
	fs.StringVar(&b.flags.MediaEndpoint, "media-endpoint", "", "S3 compatible endpoint, e.g. a MinIO URL")

	return b
}

// Resolve builds the Config: defaults, then the JSON file if --config was
// given, then every flag set on the command line.
func (b *Binding) Resolve() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if b.path != "" {
		if err := parseJSON(b.path, cfg); err != nil {
			return nil, err
		}
	}

	b.fs.Visit(func(f *pflag.Flag) {
		b.apply(cfg, f.Name)
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (b *Binding) apply(cfg *Config, name string) {
	switch name {
	case "server":
		cfg.ServerURL = b.flags.ServerURL
	case "db":
		cfg.DatabasePath = b.flags.DatabasePath
	case "page-size":
		cfg.PageSize = b.flags.PageSize
	case "poll-interval":
		cfg.NewerPollInterval = b.flags.NewerPollInterval
	case "timeout":
		cfg.RequestTimeout = b.flags.RequestTimeout
	case "log-level":
		cfg.LogLevel = b.flags.LogLevel
	case "log-format":
		cfg.LogFormat = b.flags.LogFormat
	case "media-bucket":
		cfg.MediaBucket = b.flags.MediaBucket
	case "media-region":
		cfg.MediaRegion = b.flags.MediaRegion
	case "media-endpoint":
		cfg.MediaEndpoint = b.flags.MediaEndpoint
	}
}
