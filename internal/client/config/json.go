package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/feedsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "120s" or as integer nanoseconds. Absent or zero fields leave
// the current value untouched.
type JsonConfig struct {
	ServerURL         string         `json:"server_url"`
	DatabasePath      string         `json:"database_path"`
	PageSize          int            `json:"page_size"`
	NewerPollInterval timex.Duration `json:"newer_poll_interval"`
	RequestTimeout    timex.Duration `json:"request_timeout"`
	LogLevel          string         `json:"log_level"`
	LogFormat         string         `json:"log_format"`

	Media struct {
		Bucket    string `json:"bucket"`
		Region    string `json:"region"`
		Endpoint  string `json:"endpoint"`
		AccessKey string `json:"access_key"`
		SecretKey string `json:"secret_key"`
	} `json:"media"`
}

func parseJSON(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	if jc.PageSize != 0 {
		cfg.PageSize = jc.PageSize
	}
	if jc.NewerPollInterval.Duration != 0 {
		cfg.NewerPollInterval = jc.NewerPollInterval.Duration
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	setString(&cfg.MediaBucket, jc.Media.Bucket)
	setString(&cfg.MediaRegion, jc.Media.Region)
	setString(&cfg.MediaEndpoint, jc.Media.Endpoint)
	setString(&cfg.MediaAccessKey, jc.Media.AccessKey)
	setString(&cfg.MediaSecretKey, jc.Media.SecretKey)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
