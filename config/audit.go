// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"codeberg.org/dtextview/dtextview/core/audit"
)

const (
	responseDirPermissions = 0o700
	logFilePermissions     = 0o640
)

var logLevels = map[string]zerolog.Level{
	"debug": zerolog.DebugLevel,
	"info":  zerolog.InfoLevel,
	"warn":  zerolog.WarnLevel,
	"error": zerolog.ErrorLevel,
}

// setupAudit configures the global logger and response saving.
func (cfg *ServerConfig) setupAudit() {
	switch {
	case cfg.Development.InDevelopment:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		if level, ok := logLevels[cfg.Log.Level]; ok {
			zerolog.SetGlobalLevel(level)
		}
	}

	writers := make([]io.Writer, 0, len(cfg.Log.Outputs))

	for _, output := range cfg.Log.Outputs {
		if w := cfg.logWriter(output); w != nil {
			writers = append(writers, w)
		}
	}

	if len(writers) == 0 {
		writers = append(writers, ConsoleWriter(os.Stderr))
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()

	audit.SaveResponses = cfg.Development.SaveResponses
	audit.ResponseDirectory = cfg.Development.ResponseSaveLocation

	if audit.SaveResponses {
		if err := os.MkdirAll(audit.ResponseDirectory, responseDirPermissions); err != nil {
			log.Error().
				Err(err).
				Str("path", audit.ResponseDirectory).
				Msg("Failed to create response directory, not saving responses")

			audit.SaveResponses = false
		}
	}
}

// logWriter opens one log output; nil means the output is unusable.
func (cfg *ServerConfig) logWriter(output string) io.Writer {
	var f *os.File

	switch output {
	case "/dev/stdout":
		f = os.Stdout
	case "/dev/stderr":
		f = os.Stderr
	default:
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions) // #nosec G304
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", output, err)

			return nil
		}

		f = file
	}

	if cfg.Log.Format == "json" {
		return f
	}

	return ConsoleWriter(f)
}

// ConsoleWriter returns a human-readable zerolog writer, colored only on a terminal.
func ConsoleWriter(f *os.File) io.Writer {
	noColor := !isatty.IsTerminal(f.Fd())

	w := zerolog.ConsoleWriter{Out: f, NoColor: noColor, TimeFormat: time.DateTime}

	if !noColor {
		w.FormatPrepare = func(m map[string]any) error {
			// Upstream request spans get a one-line summary.
			if sys, ok := m["sys"]; ok && sys == "http" {
				m["message"] = fmt.Sprintf("[%s] %v %-5s %s", m["destination"], m["status_code"], m["method"], m["url"])

				for _, key := range []string{"sys", "method", "status_code", "url", "destination", "request_id"} {
					delete(m, key)
				}
			}

			return nil
		}
	}

	return w
}
