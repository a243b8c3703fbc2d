// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils

import (
	"crypto/tls"
	"net/http"
	"time"
)

const (
	clientSessionCacheSize = 20
	maxIdleConnsPerHost    = 20

	// DefaultRequestTimeout bounds a single upstream request.
	DefaultRequestTimeout = 15 * time.Second
)

// HTTPClient is the client used for every upstream request.
//
// Its Timeout is replaced by the configured value when the configuration is
// loaded.
var HTTPClient = &http.Client{
	Timeout: DefaultRequestTimeout,
	Transport: &http.Transport{
		TLSClientConfig: &tls.Config{
			ClientSessionCache: tls.NewLRUClientSessionCache(clientSessionCacheSize),
			MinVersion:         tls.VersionTLS12,
		},
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
	},
}
