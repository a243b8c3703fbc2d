// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package config loads the server configuration.
//
// Values are applied in this order, later sources winning: defaults, the
// YAML file, a .env file, the environment.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Global exposes the server configuration.
var Global ServerConfig

// ServerConfig holds the application configuration.
type ServerConfig struct {
	Build buildInfo `yaml:"-"`

	Basic struct {
		Host                     string      `env:"DTEXTVIEW_HOST,overwrite" yaml:"host"`
		Port                     string      `env:"DTEXTVIEW_PORT,overwrite" yaml:"port"`
		UnixSocket               string      `env:"DTEXTVIEW_UNIXSOCKET" yaml:"unixSocket"`
		RawUnixSocketPermissions string      `env:"DTEXTVIEW_UNIXSOCKET_PERMISSIONS" yaml:"unixSocketPermissions"`
		UnixSocketPermissions    os.FileMode `yaml:"-"`
	} `yaml:"basic"`

	Booru struct {
		BaseURL string `env:"DTEXTVIEW_BOORU_URL,overwrite" yaml:"baseUrl"`
		Variant string `env:"DTEXTVIEW_BOORU_VARIANT,overwrite" yaml:"variant"`
		Login   string `env:"DTEXTVIEW_BOORU_LOGIN" yaml:"login"`
		APIKey  string `env:"DTEXTVIEW_BOORU_API_KEY" yaml:"apiKey"`
	} `yaml:"booru"`

	Cache struct {
		Enabled  bool          `env:"DTEXTVIEW_CACHE,overwrite" yaml:"enabled"`
		Size     int           `env:"DTEXTVIEW_CACHE_SIZE,overwrite" yaml:"cacheSize"`
		TTL      time.Duration `env:"DTEXTVIEW_CACHE_TTL,overwrite" yaml:"cacheTTL"`
		Compress bool          `env:"DTEXTVIEW_CACHE_COMPRESS,overwrite" yaml:"compress"`
	} `yaml:"cache"`

	HTTPCache struct {
		MaxAge               time.Duration `env:"DTEXTVIEW_CACHE_CONTROL_MAX_AGE,overwrite" yaml:"cacheControlMaxAge"`
		StaleWhileRevalidate time.Duration `env:"DTEXTVIEW_CACHE_CONTROL_STALE_WHILE_REVALIDATE,overwrite" yaml:"cacheControlStaleWhileRevalidate"`
	} `yaml:"httpCache"`

	Request struct {
		AcceptLanguage string        `env:"DTEXTVIEW_ACCEPTLANGUAGE,overwrite" yaml:"acceptLanguage"`
		Timeout        time.Duration `env:"DTEXTVIEW_REQUEST_TIMEOUT,overwrite" yaml:"timeout"`
	} `yaml:"request"`

	Render struct {
		// RawLineSeparator accepts Go escape sequences, e.g. `\r\n`.
		RawLineSeparator string `env:"DTEXTVIEW_LINE_SEPARATOR,overwrite" yaml:"lineSeparator"`
		LineSeparator    string `yaml:"-"`
		WikiLookupLimit  int    `env:"DTEXTVIEW_WIKI_LOOKUP_LIMIT,overwrite" yaml:"wikiLookupLimit"`
		Sanitize         bool   `env:"DTEXTVIEW_SANITIZE,overwrite" yaml:"sanitize"`
		MaxMarkupBytes   int    `env:"DTEXTVIEW_MAX_MARKUP_BYTES,overwrite" yaml:"maxMarkupBytes"`
	} `yaml:"render"`

	Instance struct {
		StartingTime string `yaml:"-"`
		RepoURL      string `env:"DTEXTVIEW_REPO_URL,overwrite" yaml:"repoUrl"`
	} `yaml:"instance"`

	Development struct {
		InDevelopment        bool   `env:"DTEXTVIEW_DEV" yaml:"inDevelopment"`
		SaveResponses        bool   `env:"DTEXTVIEW_SAVE_RESPONSES,overwrite" yaml:"saveResponses"`
		ResponseSaveLocation string `env:"DTEXTVIEW_RESPONSE_SAVE_LOCATION,overwrite" yaml:"responseSaveLocation"`
	} `yaml:"development"`

	Log struct {
		Level   string   `env:"DTEXTVIEW_LOG_LEVEL,overwrite" yaml:"logLevel"`
		Outputs []string `env:"DTEXTVIEW_LOG_OUTPUTS,overwrite" yaml:"logOutputs"`
		Format  string   `env:"DTEXTVIEW_LOG_FORMAT,overwrite" yaml:"logFormat"`
	} `yaml:"log"`

	Limiter struct {
		Enabled           bool          `env:"DTEXTVIEW_LIMITER,overwrite" yaml:"enabled"`
		PassIPs           []string      `env:"DTEXTVIEW_LIMITER_PASS_IPS,overwrite" yaml:"passList"`
		BlockIPs          []string      `env:"DTEXTVIEW_LIMITER_BLOCK_IPS,overwrite" yaml:"blockList"`
		IPv4Prefix        int           `env:"DTEXTVIEW_LIMITER_IPV4_PREFIX,overwrite" yaml:"ipv4Prefix"`
		IPv6Prefix        int           `env:"DTEXTVIEW_LIMITER_IPV6_PREFIX,overwrite" yaml:"ipv6Prefix"`
		RequestsPerMinute int           `env:"DTEXTVIEW_LIMITER_REQUESTS_PER_MINUTE,overwrite" yaml:"requestsPerMinute"`
		Burst             int           `env:"DTEXTVIEW_LIMITER_BURST,overwrite" yaml:"burst"`
		IdleTimeout       time.Duration `env:"DTEXTVIEW_LIMITER_IDLE_TIMEOUT,overwrite" yaml:"idleTimeout"`
	} `yaml:"limiter"`
}

// LoadConfig loads the configuration from all sources, validates it, and
// sets up logging.
func (cfg *ServerConfig) LoadConfig() error {
	configFilePath := resolveConfigFilePath()

	cfg.SetDefaults()
	cfg.Build.load()

	cfg.Instance.StartingTime = time.Now().UTC().Format("2006-01-02 15:04")

	if err := cfg.readYAML(configFilePath); err != nil {
		return fmt.Errorf("error loading YAML config: %w", err)
	}

	if err := useDotEnv(); err != nil {
		return fmt.Errorf("error using .env file: %w", err)
	}

	if err := readEnv(cfg); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}

	if err := cfg.validateAndSet(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	cfg.setupAudit()
	cfg.print()

	return nil
}

// resolveConfigFilePath picks the YAML file: the -config flag if given, then
// DTEXTVIEW_CONFIGFILE, then ./config.yaml with ./config.yml as fallback.
func resolveConfigFilePath() string {
	flagValue := parseCommandLineArgs()

	flagSet := false

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			flagSet = true
		}
	})

	switch {
	case flagSet:
		return flagValue
	case os.Getenv("DTEXTVIEW_CONFIGFILE") != "":
		return os.Getenv("DTEXTVIEW_CONFIGFILE")
	}

	if _, err := os.Stat(flagValue); os.IsNotExist(err) {
		if _, err := os.Stat("./config.yml"); err == nil {
			return "./config.yml"
		}
	}

	return flagValue
}

// skippedPathPrefixes are not logged by the request logger.
var skippedPathPrefixes = []string{"/healthz", "/favicon.ico"}

// ShouldSkipServerLogging determines if a request should bypass the logging middleware.
func (cfg *ServerConfig) ShouldSkipServerLogging(path string) bool {
	for _, prefix := range skippedPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// GetDurationEncoderOption returns a YAML encoder option that marshals
// time.Duration into a human-readable string format (e.g., "30m", "1h").
func GetDurationEncoderOption() yaml.EncodeOption {
	return yaml.CustomMarshaler[time.Duration](
		func(d time.Duration) ([]byte, error) {
			return yaml.Marshal(d.String())
		},
	)
}
