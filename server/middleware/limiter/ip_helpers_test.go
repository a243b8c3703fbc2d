// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"net/http"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		request    *http.Request
		expectedIP string
		wantOK     bool
	}{
		{
			name: "X-Real-IP from trusted proxy",
			request: &http.Request{
				RemoteAddr: "127.0.0.1:12345",
				Header:     http.Header{"X-Real-Ip": []string{"2.2.2.2"}},
			},
			expectedIP: "2.2.2.2",
			wantOK:     true,
		},
		{
			name: "X-Forwarded-For last hop",
			request: &http.Request{
				RemoteAddr: "192.168.1.1:12345",
				Header:     http.Header{"X-Forwarded-For": []string{"3.3.3.3, 4.4.4.4"}},
			},
			expectedIP: "4.4.4.4",
			wantOK:     true,
		},
		{
			name: "proxy headers ignored from public address",
			request: &http.Request{
				RemoteAddr: "1.1.1.1:12345",
				Header:     http.Header{"X-Real-Ip": []string{"2.2.2.2"}},
			},
			expectedIP: "1.1.1.1",
			wantOK:     true,
		},
		{
			name:       "IPv4-mapped IPv6 is unmapped",
			request:    &http.Request{RemoteAddr: "[::ffff:8.8.8.8]:443"},
			expectedIP: "8.8.8.8",
			wantOK:     true,
		},
		{
			name:    "garbage remote address",
			request: &http.Request{RemoteAddr: "not-an-ip"},
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			addr, ok := getClientIP(tt.request)
			require.Equal(t, tt.wantOK, ok)

			if ok {
				assert.Equal(t, tt.expectedIP, addr.String())
			}
		})
	}
}

func TestIPMatchesList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ip       string
		list     []string
		expected bool
	}{
		{name: "exact entry", ip: "192.168.1.1", list: []string{"192.168.1.1"}, expected: true},
		{name: "CIDR", ip: "192.168.1.1", list: []string{"192.168.1.0/24"}, expected: true},
		{name: "no match", ip: "192.168.1.1", list: []string{"10.0.0.0/8"}, expected: false},
		{name: "IPv6 CIDR", ip: "2001:db8::1", list: []string{"2001:db8::/32"}, expected: true},
		{name: "malformed entry", ip: "10.0.0.1", list: []string{"10.0.0.0/99", "nope"}, expected: false},
		{name: "empty list", ip: "10.0.0.1", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, ipMatchesList(netip.MustParseAddr(tt.ip), tt.list))
		})
	}
}

func TestGetNetwork(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		ip         string
		ipv4Prefix int
		ipv6Prefix int
		expected   string
	}{
		{name: "IPv4 with /24", ip: "192.168.1.1", ipv4Prefix: 24, ipv6Prefix: 64, expected: "192.168.1.0/24"},
		{name: "IPv4 with /32", ip: "192.168.1.1", ipv4Prefix: 32, ipv6Prefix: 64, expected: "192.168.1.1/32"},
		{name: "IPv6 with /64", ip: "2001:db8::1", ipv4Prefix: 24, ipv6Prefix: 64, expected: "2001:db8::/64"},
		{name: "IPv6 with /48", ip: "2001:db8:1:2::1", ipv4Prefix: 24, ipv6Prefix: 48, expected: "2001:db8:1::/48"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			network := getNetwork(netip.MustParseAddr(tt.ip), tt.ipv4Prefix, tt.ipv6Prefix)
			assert.Equal(t, tt.expected, network.String())
		})
	}
}
