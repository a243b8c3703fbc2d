// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import "flag"

var configFilePath string

// parseCommandLineArgs defines the -config flag once, parses flags if that has
// not happened yet, and returns the flag's value.
//
// Programs with flags of their own define them before calling LoadConfig.
func parseCommandLineArgs() string {
	if flag.Lookup("config") == nil {
		flag.StringVar(&configFilePath, "config", "./config.yaml", "Path to a dtextview configuration file in YAML format.")
	}

	if !flag.Parsed() {
		flag.Parse()
	}

	return flag.Lookup("config").Value.String()
}
