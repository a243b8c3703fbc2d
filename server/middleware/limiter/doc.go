// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package limiter is a middleware that enforces per-network rate limiting for HTTP requests.

Clients are grouped by the network their address belongs to (see
config.Global.Limiter.IPv4Prefix and IPv6Prefix) and each network shares one
token bucket. Explicit pass and block lists take precedence over the buckets.
*/
package limiter
