// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "page.dtext")
	require.NoError(t, os.WriteFile(path, []byte("h2. Title\n[b]hi[/b]"), 0o600))

	got, err := readInput(path, 64)
	require.NoError(t, err)
	assert.Equal(t, "h2. Title\n[b]hi[/b]", got)

	_, err = readInput(path, 4)
	require.ErrorIs(t, err, errTooLarge)

	_, err = readInput(filepath.Join(dir, "missing"), 64)
	require.Error(t, err)
}
