// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package joy

import (
	"math"
	"time"
)

const (
	mockAxes    = 8
	mockButtons = 12

	// mockEnableButton matches the default enable_button parameter.
	mockEnableButton = 5
)

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock joystick that sweeps the sticks smoothly
// and holds the enable button for four seconds out of every six.
func NewMockSource() Source {
	return newMockSource(time.Now)
}

func newMockSource(now func() time.Time) *mockSource {
	return &mockSource{start: now(), now: now}
}

func (m *mockSource) Next() (Sample, error) {
	t := m.now()
	elapsed := t.Sub(m.start).Seconds()

	axes := make([]float64, mockAxes)
	axes[0] = 0.3 * math.Sin(elapsed*0.5)
	axes[1] = math.Sin(elapsed)
	axes[2] = math.Sin(elapsed * 0.7)
	axes[3] = 0.5 * math.Cos(elapsed*0.3)
	axes[5] = math.Cos(elapsed * 0.4)

	buttons := make([]int64, mockButtons)
	if math.Mod(elapsed, 6) < 4 {
		buttons[mockEnableButton] = 1
	}

	return Sample{
		Axes:    axes,
		Buttons: buttons,
		StampMs: t.UnixMilli(),
	}, nil
}
