// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package teleop

import (
	"log"
	"math"

	"github.com/relabs-tech/teleop_joy/internal/joy"
	"github.com/relabs-tech/teleop_joy/internal/twist"
)

// rampDivisor is how much of the instantaneous forward input the autorun
// cruise speed absorbs per sample.
const rampDivisor = 10.0

// Sink receives every command the engine emits. Publish must not block
// for long; delivery is fire-and-forget.
type Sink interface {
	Publish(cmd twist.Twist)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(cmd twist.Twist)

func (f SinkFunc) Publish(cmd twist.Twist) { f(cmd) }

// MultiSink fans a command out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Publish(cmd twist.Twist) {
	for _, s := range m {
		s.Publish(cmd)
	}
}

// Status is a snapshot of the engine's runtime state.
type Status struct {
	Mode           Mode    `json:"mode"`
	AutorunEnabled bool    `json:"autorun_enabled"`
	RampedForward  float64 `json:"ramped_forward"`
	StopSent       bool    `json:"stop_sent"`
	ParamsVersion  uint64  `json:"params_version"`
}

type autorunState struct {
	enabled       bool
	edgeBuffer    int64 // toggle button value in the previous sample
	rampedForward float64
}

// Engine turns joystick samples into velocity commands. It is not safe for
// concurrent use: feed it from a single goroutine.
type Engine struct {
	params ParamSource
	sink   Sink

	autorun  autorunState
	stopSent bool

	mode    Mode
	version uint64
}

// NewEngine creates an engine reading params and emitting to sink.
func NewEngine(params ParamSource, sink Sink) *Engine {
	return &Engine{params: params, sink: sink}
}

// HandleSample runs one full pass for s: autorun edge detection, mode
// selection, then either command synthesis or the dead-man stop.
// It returns the selected mode.
func (e *Engine) HandleSample(s joy.Sample) Mode {
	p := e.params.Snapshot()
	e.version = p.Version

	e.updateAutorun(p, s)
	mode := e.selectMode(p, s)
	e.setMode(mode)

	if mode == ModeDisabled {
		e.stop()
		return mode
	}

	e.sink.Publish(e.synthesize(p, s, mode))
	e.stopSent = false
	return mode
}

// Halt runs the dead-man path without a sample, e.g. when the input has
// gone silent. Autorun state is left alone. It reports whether a stop
// command was emitted.
func (e *Engine) Halt() bool {
	e.setMode(ModeDisabled)
	return e.stop()
}

// Status returns the engine state after the last sample.
func (e *Engine) Status() Status {
	return Status{
		Mode:           e.mode,
		AutorunEnabled: e.autorun.enabled,
		RampedForward:  e.autorun.rampedForward,
		StopSent:       e.stopSent,
		ParamsVersion:  e.version,
	}
}

func (e *Engine) setMode(m Mode) {
	if m != e.mode {
		log.Printf("teleop: mode %s -> %s", e.mode, m)
	}
	e.mode = m
}

func (e *Engine) updateAutorun(p *Params, s joy.Sample) {
	if b, ok := s.Button(p.EnableAutorunButton); ok {
		if b-e.autorun.edgeBuffer > 0 {
			e.autorun.enabled = !e.autorun.enabled
			log.Printf("teleop: autorun toggled, enabled=%t", e.autorun.enabled)
		}
		e.autorun.edgeBuffer = b
	}
	if !e.autorun.enabled {
		e.autorun.rampedForward = 0
	}
}

// selectMode applies the priority order autorun > turbo > normal.
func (e *Engine) selectMode(p *Params, s joy.Sample) Mode {
	switch {
	case e.autorun.enabled:
		return ModeAutorun
	case p.EnableTurboButton >= 0 && s.Pressed(p.EnableTurboButton):
		return ModeTurbo
	case !p.RequireEnableButton || s.Pressed(p.EnableButton):
		return ModeNormal
	default:
		return ModeDisabled
	}
}

func (e *Engine) synthesize(p *Params, s joy.Sample, mode Mode) twist.Twist {
	scale := p.ScaleFor(mode)

	var cmd twist.Twist
	forward := AxisValue(s, p.Axes, scale, ChannelX)
	yaw := AxisValue(s, p.Axes, scale, ChannelYaw)

	if mode == ModeAutorun {
		forward = e.rampForward(forward, scale.X)
		adjust := AxisValue(s, p.AdjustmentAxes, scale, ChannelYaw)
		yaw = clampSymmetric(yaw+adjust, scale.Yaw)
	}

	cmd.Linear.X = forward
	cmd.Linear.Y = AxisValue(s, p.Axes, scale, ChannelY)
	cmd.Linear.Z = AxisValue(s, p.Axes, scale, ChannelZ)
	cmd.Angular.X = AxisValue(s, p.Axes, scale, ChannelRoll)
	cmd.Angular.Y = AxisValue(s, p.Axes, scale, ChannelPitch)
	cmd.Angular.Z = yaw
	return cmd
}

// rampForward integrates a tenth of raw into the cruise speed and bounds
// it to [-limit, limit].
func (e *Engine) rampForward(raw, limit float64) float64 {
	e.autorun.rampedForward = clampSymmetric(e.autorun.rampedForward+raw/rampDivisor, limit)
	return e.autorun.rampedForward
}

// stop emits a single zero command per disabled streak.
func (e *Engine) stop() bool {
	if e.stopSent {
		return false
	}
	e.sink.Publish(twist.Stop())
	e.stopSent = true
	return true
}

// AxisValue returns the scaled value of channel c. A channel that is
// unmapped, mapped past the end of the sample's axes, or reading NaN or
// Inf contributes 0.
func AxisValue(s joy.Sample, axes AxisMap, scales ScaleMap, c Channel) float64 {
	v, ok := s.Axis(axes.Index(c))
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v * scales.Factor(c)
}

// clampSymmetric bounds v to [-limit, limit], upper bound first. With a
// negative limit the result is -limit.
func clampSymmetric(v, limit float64) float64 {
	if v > limit {
		v = limit
	}
	if v < -limit {
		v = -limit
	}
	return v
}
