// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"codeberg.org/dtextview/dtextview/server/utils"
)

// validation errors.
var (
	errUnixSocketWithHostPort       = errors.New("unix socket configured - cannot specify Host and Port simultaneously")
	errUnixSocketInvalidPermissions = errors.New("invalid Basic.UnixSocketPermissions value")
	errInvalidBooruVariant          = errors.New("Booru.Variant must be danbooru or gelbooru")
	errGelbooruNeedsUserID          = errors.New("Booru.Login must be the numeric user id when using gelbooru with an API key")
	errInvalidLineSeparator         = errors.New("invalid Render.LineSeparator")
	errInvalidCacheSize             = errors.New("Cache.Size must be positive when the cache is enabled")
	errInvalidMaxMarkupBytes        = errors.New("Render.MaxMarkupBytes must be positive")
	errInvalidRequestTimeout        = errors.New("Request.Timeout must be positive")
	errInvalidIPv4Prefix            = errors.New("IPv4 prefix must be between 0 and 32")
	errInvalidIPv6Prefix            = errors.New("IPv6 prefix must be between 0 and 128")
	errInvalidLimiterRate           = errors.New("Limiter.RequestsPerMinute and Limiter.Burst must be positive")
	errInvalidLimiterAddress        = errors.New("invalid address or network in limiter list")
)

// validateAndSet validates the server configuration and populates derived fields.
func (cfg *ServerConfig) validateAndSet() error {
	if err := cfg.validateListener(); err != nil {
		return err
	}

	if err := cfg.validateBooru(); err != nil {
		return err
	}

	if err := cfg.validateRender(); err != nil {
		return err
	}

	if cfg.Cache.Enabled && cfg.Cache.Size <= 0 {
		return errInvalidCacheSize
	}

	if cfg.Request.Timeout <= 0 {
		return errInvalidRequestTimeout
	}

	utils.HTTPClient.Timeout = cfg.Request.Timeout

	repoURL, err := utils.ParseURL(cfg.Instance.RepoURL, "Repo")
	if err != nil {
		return fmt.Errorf("invalid repo URL: %w", err)
	}

	cfg.Instance.RepoURL = repoURL.String()

	if cfg.Limiter.Enabled {
		return cfg.validateLimiter()
	}

	return nil
}

func (cfg *ServerConfig) validateListener() error {
	if cfg.Basic.UnixSocket == "" {
		if cfg.Basic.Host == "" {
			cfg.Basic.Host = "localhost"
			log.Info().Str("host", cfg.Basic.Host).Msg("Binding to default host")
		}

		if cfg.Basic.Port == "" {
			cfg.Basic.Port = "8383"
			log.Info().Str("port", cfg.Basic.Port).Msg("Using default port")
		}

		return nil
	}

	if cfg.Basic.Host != "" || cfg.Basic.Port != "" {
		return errUnixSocketWithHostPort
	}

	if cfg.Basic.RawUnixSocketPermissions == "" {
		cfg.Basic.UnixSocketPermissions = 0o666

		return nil
	}

	mode, err := strconv.ParseUint(cfg.Basic.RawUnixSocketPermissions, 8, 32)
	if err != nil || mode > 0o777 {
		return errUnixSocketInvalidPermissions
	}

	cfg.Basic.UnixSocketPermissions = os.FileMode(mode)

	return nil
}

func (cfg *ServerConfig) validateBooru() error {
	baseURL, err := utils.ParseURL(cfg.Booru.BaseURL, "booru")
	if err != nil {
		return fmt.Errorf("invalid booru URL: %w", err)
	}

	cfg.Booru.BaseURL = baseURL.String()
	cfg.Booru.Variant = strings.ToLower(strings.TrimSpace(cfg.Booru.Variant))

	switch cfg.Booru.Variant {
	case "danbooru":
	case "gelbooru":
		if cfg.Booru.APIKey != "" {
			if _, err := strconv.Atoi(cfg.Booru.Login); err != nil {
				return errGelbooruNeedsUserID
			}
		}
	default:
		return fmt.Errorf("%w, got %q", errInvalidBooruVariant, cfg.Booru.Variant)
	}

	return nil
}

func (cfg *ServerConfig) validateRender() error {
	sep, err := DecodeLineSeparator(cfg.Render.RawLineSeparator)
	if err != nil {
		return err
	}

	cfg.Render.LineSeparator = sep

	if cfg.Render.MaxMarkupBytes <= 0 {
		return errInvalidMaxMarkupBytes
	}

	return nil
}

// DecodeLineSeparator interprets Go escape sequences in raw, so that `\r\n`
// written in an environment variable means CR LF.
func DecodeLineSeparator(raw string) (string, error) {
	if raw != "" && !strings.Contains(raw, `\`) {
		return raw, nil
	}

	sep, err := strconv.Unquote(`"` + strings.ReplaceAll(raw, `"`, `\"`) + `"`)
	if err != nil || sep == "" {
		return "", fmt.Errorf("%w: %q", errInvalidLineSeparator, raw)
	}

	return sep, nil
}

func (cfg *ServerConfig) validateLimiter() error {
	if cfg.Limiter.IPv4Prefix < 0 || cfg.Limiter.IPv4Prefix > 32 {
		return errInvalidIPv4Prefix
	}

	if cfg.Limiter.IPv6Prefix < 0 || cfg.Limiter.IPv6Prefix > 128 {
		return errInvalidIPv6Prefix
	}

	if cfg.Limiter.RequestsPerMinute <= 0 || cfg.Limiter.Burst <= 0 {
		return errInvalidLimiterRate
	}

	for _, entry := range slices.Concat(cfg.Limiter.PassIPs, cfg.Limiter.BlockIPs) {
		if _, err := netip.ParsePrefix(entry); err == nil {
			continue
		}

		if _, err := netip.ParseAddr(entry); err != nil {
			return fmt.Errorf("%w: %q", errInvalidLimiterAddress, entry)
		}
	}

	return nil
}
