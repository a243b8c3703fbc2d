// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/dtextview/dtextview/server/utils"
)

func TestParseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		urlStr   string
		wantErr  bool
		expected string
	}{
		{"Valid URL", "https://danbooru.donmai.us", false, "https://danbooru.donmai.us"},
		{"Trailing slash", "https://danbooru.donmai.us/", false, "https://danbooru.donmai.us"},
		{"Path with trailing slash", "https://example.com/booru/", false, "https://example.com/booru"},
		{"Plain http", "http://localhost:3000", false, "http://localhost:3000"},
		{"Missing scheme", "danbooru.donmai.us", true, ""},
		{"Missing host", "https://", true, ""},
		{"Empty URL", "", true, ""},
		{"Other scheme", "ftp://example.com", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := utils.ParseURL(tt.urlStr, "Test")
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.String())
		})
	}
}

func TestGetQueryParam(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/wiki/foo?sep=%0D%0A", nil)

	assert.Equal(t, "\r\n", utils.GetQueryParam(r, "sep"))
	assert.Equal(t, "fallback", utils.GetQueryParam(r, "missing", "fallback"))
	assert.Empty(t, utils.GetQueryParam(r, "missing"))
}
