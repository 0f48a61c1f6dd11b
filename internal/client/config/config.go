package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds runtime settings for the feedsync CLI.
//
// Media* fields select direct S3 uploads; when MediaBucket is empty
// attachments are uploaded through the feed server.
type Config struct {
	ServerURL         string
	DatabasePath      string
	PageSize          int
	NewerPollInterval time.Duration
	RequestTimeout    time.Duration
	LogLevel          string
	LogFormat         string

	MediaBucket    string
	MediaRegion    string
	MediaEndpoint  string
	MediaAccessKey string
	MediaSecretKey string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:9999"
	c.DatabasePath = "feedsync.db"
	c.PageSize = 5
	c.NewerPollInterval = 120 * time.Second
	c.RequestTimeout = 30 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.MediaRegion = "us-east-1"
}

func (c *Config) Validate() error {
	var errs []error
	if c.ServerURL == "" {
		errs = append(errs, errors.New("server url is required"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("page size must be positive, got %d", c.PageSize))
	}
	if c.NewerPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("newer poll interval must be positive, got %s", c.NewerPollInterval))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
