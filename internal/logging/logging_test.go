// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logging

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teleop.log")
	closer := Setup(Options{File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	t.Cleanup(func() { Setup(Options{}) })

	log.Printf("teleop: hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "teleop: hello")
}

func TestSetupStderrOnly(t *testing.T) {
	closer := Setup(Options{})
	assert.NoError(t, closer.Close())
}
