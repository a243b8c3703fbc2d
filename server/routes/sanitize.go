// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is bluemonday's UGC policy plus the attributes the renderer emits.
var policy = sync.OnceValue(func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	p.AllowAttrs("class").Globally()
	p.AllowDataAttributes()

	return p
})

// Sanitize strips anything from an HTML fragment that the renderer would
// never produce itself.
func Sanitize(fragment string) string {
	return policy().Sanitize(fragment)
}
