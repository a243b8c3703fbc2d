// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// useDotEnv loads a .env file from the working directory or, failing that,
// from the directory of the binary. A missing file is not an error.
//
// Variables that are already set are left alone.
func useDotEnv() error {
	candidates := make([]string, 0, 2)

	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ".env"))
	}

	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), ".env"))
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path) // #nosec G304 -- fixed file name in known directories
		if os.IsNotExist(err) {
			continue
		}

		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Could not read .env file")

			continue
		}

		applyDotEnv(path, data)

		return nil
	}

	log.Debug().Msg("No .env file found, skipping")

	return nil
}

func applyDotEnv(path string, data []byte) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			log.Warn().
				Str("path", path).
				Int("line", lineNumber).
				Msg("Invalid format in .env file")

			continue
		}

		key, value = strings.TrimSpace(key), unquote(strings.TrimSpace(value))

		if _, set := os.LookupEnv(key); set {
			continue
		}

		if err := os.Setenv(key, value); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Could not set environment variable")
		}
	}

	log.Info().
		Str("path", path).
		Msg("Loaded configuration from .env file")
}

// unquote strips one pair of matching single or double quotes.
func unquote(value string) string {
	if len(value) >= 2 && value[0] == value[len(value)-1] && (value[0] == '"' || value[0] == '\'') {
		return value[1 : len(value)-1]
	}

	return value
}
