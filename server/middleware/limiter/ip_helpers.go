// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/rs/zerolog/log"
)

// getClientIP extracts the client's IP address from an HTTP request with proxy awareness.
//
// Proxy headers (X-Real-IP, X-Forwarded-For) are only trusted when the connection
// comes from a private or loopback address.
func getClientIP(r *http.Request) (netip.Addr, bool) {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}

	remoteAddr, err := netip.ParseAddr(remote)
	if err != nil {
		log.Error().Str("remote_addr", r.RemoteAddr).Msg("Could not determine client IP")

		return netip.Addr{}, false
	}

	remoteAddr = remoteAddr.Unmap()

	if !remoteAddr.IsPrivate() && !remoteAddr.IsLoopback() {
		return remoteAddr, true
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		if addr, err := netip.ParseAddr(realIP); err == nil {
			return addr.Unmap(), true
		}
	}

	// The last hop of X-Forwarded-For was appended by our own proxy.
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		parts := strings.Split(xff, ",")

		if addr, err := netip.ParseAddr(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			return addr.Unmap(), true
		}
	}

	return remoteAddr, true
}

// ipMatchesList reports whether addr equals or falls within any entry of list.
// Entries are addresses or CIDR prefixes; malformed entries never match.
func ipMatchesList(addr netip.Addr, list []string) bool {
	for _, entry := range list {
		if strings.Contains(entry, "/") {
			if prefix, err := netip.ParsePrefix(entry); err == nil && prefix.Contains(addr) {
				return true
			}

			continue
		}

		if other, err := netip.ParseAddr(entry); err == nil && other.Unmap() == addr {
			return true
		}
	}

	return false
}

// getNetwork masks addr down to the configured network prefix.
func getNetwork(addr netip.Addr, ipv4Prefix, ipv6Prefix int) netip.Prefix {
	bits := ipv6Prefix
	if addr.Is4() {
		bits = ipv4Prefix
	}

	prefix, err := addr.Prefix(bits)
	if err != nil {
		// Out-of-range prefixes are rejected by config validation.
		return netip.PrefixFrom(addr, addr.BitLen())
	}

	return prefix
}
