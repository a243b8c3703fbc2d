// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"encoding/json"
	"net/http"
)

// BlockData is the body of a response refused by the limiter.
type BlockData struct {
	Reason string `json:"reason"`

	// RetryAfter is the number of seconds until the client may retry. Zero
	// means the block is not temporary.
	RetryAfter int64 `json:"retryAfter,omitempty"`
}

// BlockPage writes data as a JSON response with statusCode. The response is
// shaped like ErrorPage's so API clients handle both the same way.
func BlockPage(w http.ResponseWriter, data BlockData, statusCode int) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(struct {
		BlockData

		Status int `json:"status"`
	}{data, statusCode})
}
