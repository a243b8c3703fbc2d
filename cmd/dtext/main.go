// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
dtext renders DText markup read from a file or standard input and writes the
HTML fragment to standard output.

Usage:

	go run ./cmd/dtext [-config config.yaml] [-sanitize] [-o out.html] [file]

Links and galleries are resolved against the booru configured the same way
as the server.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"

	"codeberg.org/dtextview/dtextview/config"
	"codeberg.org/dtextview/dtextview/core/audit"
	"codeberg.org/dtextview/dtextview/core/booru"
	"codeberg.org/dtextview/dtextview/core/dtext"
	"codeberg.org/dtextview/dtextview/core/requests"
	"codeberg.org/dtextview/dtextview/server/routes"
)

const outputPerm = 0o644

var errTooLarge = errors.New("markup exceeds the configured size limit")

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Render failed")
	}
}

func run() error {
	output := flag.String("o", "", "Write the HTML to this file instead of standard output.")
	sanitize := flag.Bool("sanitize", false, "Sanitize the HTML even if disabled in the configuration.")

	audit.SetDefaultLogger()

	// LoadConfig parses the flags defined above.
	if err := config.Global.LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := requests.Setup(); err != nil {
		return fmt.Errorf("failed to set up response cache: %w", err)
	}

	site, err := booru.NewClientFromConfig()
	if err != nil {
		return fmt.Errorf("failed to create booru client: %w", err)
	}

	markup, err := readInput(flag.Arg(0), config.Global.Render.MaxMarkupBytes)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	html, err := dtext.RenderMarkup(ctx, markup, dtext.Options{
		LineSeparator:   config.Global.Render.LineSeparator,
		WikiLookupLimit: config.Global.Render.WikiLookupLimit,
	}, site)
	if err != nil {
		return fmt.Errorf("failed to render markup: %w", err)
	}

	if *sanitize || config.Global.Render.Sanitize {
		html = routes.Sanitize(html)
	}

	if *output == "" {
		_, err = fmt.Fprintln(os.Stdout, html)

		return err
	}

	if err := os.WriteFile(*output, []byte(html+"\n"), outputPerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", *output, err)
	}

	log.Info().Str("path", *output).Int("bytes", len(html)).Msg("Wrote HTML")

	return nil
}

// readInput reads path, or standard input when path is empty or "-".
func readInput(path string, limit int) (string, error) {
	var r io.Reader = os.Stdin

	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()

		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	if len(data) > limit {
		return "", fmt.Errorf("%w (%d bytes)", errTooLarge, limit)
	}

	return string(data), nil
}
