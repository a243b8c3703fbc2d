// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package requests

// Auth holds the credentials of a booru account.
//
// An empty Login means anonymous access.
type Auth struct {
	Login  string
	APIKey string
}

// RequestOptions are parameters for Do.
type RequestOptions struct {
	URL  string
	Auth Auth

	// BasicAuth sends Auth as an HTTP basic authorization header, as Danbooru
	// expects. Otherwise the caller is expected to have put the credentials
	// into the URL.
	BasicAuth bool
}
