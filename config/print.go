// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"
)

const redactedValue = "[redacted]"

// print logs the startup banner and, at debug level, the effective
// configuration with secrets redacted.
func (cfg *ServerConfig) print() {
	log.Info().
		Str("version", BuildVersion).
		Str("revision", cfg.Build.Revision()).
		Str("booru", cfg.Booru.BaseURL).
		Str("variant", cfg.Booru.Variant).
		Msg("Starting dtextview")

	printable := *cfg

	if printable.Booru.APIKey != "" {
		printable.Booru.APIKey = redactedValue
	}

	configYAML, err := yaml.MarshalWithOptions(printable, GetDurationEncoderOption())
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal config to YAML for printing")

		return
	}

	log.Debug().
		Str("config", string(configYAML)).
		Msg("Application configuration")
}
