// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/teleop_joy/internal/teleop"
)

func TestParseAssignments(t *testing.T) {
	lits, err := parseAssignments([]string{"scale_linear.x=0.8", "enable_button = 4", "label=a=b"})
	require.NoError(t, err)
	assert.Equal(t, []teleop.Literal{
		{Name: "scale_linear.x", Text: "0.8"},
		{Name: "enable_button", Text: "4"},
		{Name: "label", Text: "a=b"},
	}, lits)

	_, err = parseAssignments(nil)
	assert.Error(t, err)
	_, err = parseAssignments([]string{"enable_button"})
	assert.Error(t, err)
	_, err = parseAssignments([]string{"=4"})
	assert.Error(t, err)
}
