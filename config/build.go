// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"runtime/debug"
	"strings"
)

// BuildVersion is the latest tagged release.
const BuildVersion string = "v0.4.0"

type buildInfo struct {
	VcsRevision string
	VcsTime     string
	VcsModified bool
}

// Revision is "date-shortsha[+dirty]", or "unknown" outside a VCS build.
func (b *buildInfo) Revision() string {
	if len(b.VcsRevision) < 8 {
		return "unknown"
	}

	date, _, _ := strings.Cut(b.VcsTime, "T")

	s := date + "-" + b.VcsRevision[:8]
	if b.VcsModified {
		s += "+dirty"
	}

	return s
}

func (b *buildInfo) load() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			b.VcsRevision = setting.Value
		case "vcs.time":
			b.VcsTime = setting.Value
		case "vcs.modified":
			b.VcsModified = setting.Value == "true"
		}
	}
}
