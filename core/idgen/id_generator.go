// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package idgen makes short ids for log correlation.
package idgen

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// Make returns an id made of the wall-clock time (HHMMSS) and four base64url
// characters of entropy. Ids are unique enough to tell concurrent requests
// apart in logs, not globally.
func Make() string {
	var entropy [3]byte

	_, _ = rand.Read(entropy[:])

	return clockPart(time.Now()) + base64.RawURLEncoding.EncodeToString(entropy[:])
}

func clockPart(t time.Time) string {
	return t.Format("150405")
}
