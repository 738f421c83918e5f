// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package joy

import "math"

// Sample is one joystick readout suitable for JSON and MQTT.
type Sample struct {
	Axes    []float64 `json:"axes"`              // typically [-1, 1]
	Buttons []int64   `json:"buttons"`           // typically 0/1
	StampMs int64     `json:"stamp_ms,omitempty"` // producer wall clock, ms since epoch
}

// Source is anything that can provide joystick samples over time:
// mock source, evdev device, serial bridge.
type Source interface {
	Next() (Sample, error)
}

// Axis returns the axis value at index i. ok is false when the sample
// does not carry that axis.
func (s Sample) Axis(i int64) (v float64, ok bool) {
	if i < 0 || i >= int64(len(s.Axes)) {
		return 0, false
	}
	return s.Axes[i], true
}

// Button returns the button value at index i. ok is false when the sample
// does not carry that button.
func (s Sample) Button(i int64) (v int64, ok bool) {
	if i < 0 || i >= int64(len(s.Buttons)) {
		return 0, false
	}
	return s.Buttons[i], true
}

// Pressed reports whether button i exists and is non-zero.
func (s Sample) Pressed(i int64) bool {
	v, ok := s.Button(i)
	return ok && v != 0
}

// Finite reports whether every axis is a finite number.
func (s Sample) Finite() bool {
	for _, a := range s.Axes {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so a sample can be retained across reads.
func (s Sample) Clone() Sample {
	out := Sample{StampMs: s.StampMs}
	if s.Axes != nil {
		out.Axes = append([]float64(nil), s.Axes...)
	}
	if s.Buttons != nil {
		out.Buttons = append([]int64(nil), s.Buttons...)
	}
	return out
}
