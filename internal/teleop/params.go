// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package teleop

// ScaleGroups holds one scale map per driving mode.
type ScaleGroups struct {
	Normal  ScaleMap
	Turbo   ScaleMap
	Autorun ScaleMap
}

// Params is an immutable snapshot of the teleop configuration. Snapshots
// are replaced as a whole by Store; never modify one after publishing it.
type Params struct {
	// Version increases by one for every accepted update batch.
	Version uint64

	RequireEnableButton bool
	EnableButton        int64 // -1 = none
	EnableTurboButton   int64 // -1 = turbo disabled
	EnableAutorunButton int64 // -1 = autorun disabled

	// Axes drives every channel in every mode.
	Axes AxisMap
	// AdjustmentAxes adds a second yaw input while autorun is active.
	// Only its angular channels are configurable.
	AdjustmentAxes AxisMap

	Scales ScaleGroups
}

// Defaults returns the parameter values used when nothing is configured.
func Defaults() Params {
	p := Params{
		RequireEnableButton: true,
		EnableButton:        5,
		EnableTurboButton:   -1,
		EnableAutorunButton: -1,
		Axes:                UnmappedAxes(),
		AdjustmentAxes:      UnmappedAxes(),
	}
	p.Axes.X = 5
	p.Axes.Yaw = 2
	p.AdjustmentAxes.Yaw = 3

	p.Scales.Normal = ScaleMap{X: 0.5, Yaw: 0.5}
	p.Scales.Turbo = ScaleMap{X: 1.0, Yaw: 1.0}
	p.Scales.Autorun = ScaleMap{X: 1.0, Yaw: 1.0}
	return p
}

// ScaleFor returns the scale group used in mode m. Disabled has no scales.
func (p *Params) ScaleFor(m Mode) ScaleMap {
	switch m {
	case ModeNormal:
		return p.Scales.Normal
	case ModeTurbo:
		return p.Scales.Turbo
	case ModeAutorun:
		return p.Scales.Autorun
	default:
		return ScaleMap{}
	}
}

// LogSummary reports the active button and axis assignments.
func (p *Params) LogSummary(logf func(format string, args ...any)) {
	if p.RequireEnableButton {
		logf("teleop: enable button %d", p.EnableButton)
	}
	if p.EnableTurboButton >= 0 {
		logf("teleop: turbo on button %d", p.EnableTurboButton)
	}
	if p.EnableAutorunButton >= 0 {
		logf("teleop: autorun toggle on button %d", p.EnableAutorunButton)
	}

	for _, group := range []struct {
		label    string
		channels []Channel
	}{
		{"linear", linearChannels},
		{"angular", angularChannels},
	} {
		for _, c := range group.channels {
			idx := p.Axes.Index(c)
			if idx == Unmapped {
				continue
			}
			logf("teleop: %s axis %s on %d at scale %f", group.label, c, idx, p.Scales.Normal.Factor(c))
			if p.EnableTurboButton >= 0 {
				logf("teleop: turbo for %s axis %s is scale %f", group.label, c, p.Scales.Turbo.Factor(c))
			}
		}
	}
}
