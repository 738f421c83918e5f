// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package teleop

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/teleop_joy/internal/joy"
	"github.com/relabs-tech/teleop_joy/internal/twist"
)

type recordingSink struct {
	cmds []twist.Twist
}

func (r *recordingSink) Publish(cmd twist.Twist) { r.cmds = append(r.cmds, cmd) }

func (r *recordingSink) last(t *testing.T) twist.Twist {
	t.Helper()
	require.NotEmpty(t, r.cmds)
	return r.cmds[len(r.cmds)-1]
}

type fixedParams struct{ p Params }

func (f *fixedParams) Snapshot() *Params { return &f.p }

// pad builds a sample with eight axes and twelve buttons, setting the
// given indices.
func pad(axes map[int]float64, pressed ...int) joy.Sample {
	s := joy.Sample{Axes: make([]float64, 8), Buttons: make([]int64, 12)}
	for i, v := range axes {
		s.Axes[i] = v
	}
	for _, b := range pressed {
		s.Buttons[b] = 1
	}
	return s
}

func newTestEngine(p Params) (*Engine, *recordingSink) {
	sink := &recordingSink{}
	return NewEngine(&fixedParams{p: p}, sink), sink
}

func autorunParams() Params {
	p := Defaults()
	p.EnableAutorunButton = 7
	return p
}

func TestAxisValue(t *testing.T) {
	axes := UnmappedAxes()
	axes.X = 5
	scales := ScaleMap{X: 0.5}

	s := pad(map[int]float64{5: 0.8})
	assert.InDelta(t, 0.4, AxisValue(s, axes, scales, ChannelX), 1e-9)

	assert.Zero(t, AxisValue(s, axes, scales, ChannelY), "unmapped channel")
	assert.Zero(t, AxisValue(s, axes, ScaleMap{}, ChannelX), "no scale")

	axes.X = 8
	assert.Zero(t, AxisValue(s, axes, scales, ChannelX), "index past the end")

	axes.X = -4
	assert.Zero(t, AxisValue(s, axes, scales, ChannelX), "negative index")

	assert.Zero(t, AxisValue(joy.Sample{}, UnmappedAxes(), scales, ChannelX), "empty sample")

	axes.X = 5
	assert.Zero(t, AxisValue(pad(map[int]float64{5: math.NaN()}), axes, scales, ChannelX), "NaN axis")
	assert.Zero(t, AxisValue(pad(map[int]float64{5: math.Inf(1)}), axes, scales, ChannelX), "Inf axis")
}

func TestNormalModeScalesAxes(t *testing.T) {
	e, sink := newTestEngine(Defaults())

	mode := e.HandleSample(pad(map[int]float64{5: 0.8, 2: -0.6}, 5))

	assert.Equal(t, ModeNormal, mode)
	require.Len(t, sink.cmds, 1)
	cmd := sink.last(t)
	assert.InDelta(t, 0.4, cmd.Linear.X, 1e-9)
	assert.InDelta(t, -0.3, cmd.Angular.Z, 1e-9)
	assert.Zero(t, cmd.Linear.Y)
	assert.Zero(t, cmd.Angular.X)
}

func TestAllChannelsReachTheCommand(t *testing.T) {
	p := Defaults()
	p.RequireEnableButton = false
	p.Axes = AxisMap{X: 0, Y: 1, Z: 2, Yaw: 3, Pitch: 4, Roll: 5}
	p.Scales.Normal = ScaleMap{X: 1, Y: 2, Z: 3, Yaw: 4, Pitch: 5, Roll: 6}
	e, sink := newTestEngine(p)

	e.HandleSample(pad(map[int]float64{0: 0.1, 1: 0.1, 2: 0.1, 3: 0.1, 4: 0.1, 5: 0.1}))

	cmd := sink.last(t)
	assert.InDelta(t, 0.1, cmd.Linear.X, 1e-9)
	assert.InDelta(t, 0.2, cmd.Linear.Y, 1e-9)
	assert.InDelta(t, 0.3, cmd.Linear.Z, 1e-9)
	assert.InDelta(t, 0.4, cmd.Angular.Z, 1e-9)
	assert.InDelta(t, 0.5, cmd.Angular.Y, 1e-9)
	assert.InDelta(t, 0.6, cmd.Angular.X, 1e-9)
}

func TestDeadManStopIsLatched(t *testing.T) {
	e, sink := newTestEngine(Defaults())

	assert.Equal(t, ModeDisabled, e.HandleSample(pad(map[int]float64{5: 0.8})))
	require.Len(t, sink.cmds, 1)
	assert.True(t, sink.last(t).IsZero())

	e.HandleSample(pad(map[int]float64{5: 0.8}))
	assert.Len(t, sink.cmds, 1, "second disabled sample emits nothing")

	e.HandleSample(pad(map[int]float64{5: 0.8}, 5))
	require.Len(t, sink.cmds, 2)
	assert.False(t, sink.last(t).IsZero())

	e.HandleSample(pad(nil))
	require.Len(t, sink.cmds, 3, "latch re-arms after a drive command")
	assert.True(t, sink.last(t).IsZero())
}

func TestEnableButtonNotRequired(t *testing.T) {
	p := Defaults()
	p.RequireEnableButton = false
	e, sink := newTestEngine(p)

	assert.Equal(t, ModeNormal, e.HandleSample(pad(map[int]float64{5: 1})))
	assert.InDelta(t, 0.5, sink.last(t).Linear.X, 1e-9)
}

func TestMissingEnableButtonDisables(t *testing.T) {
	p := Defaults()
	p.EnableButton = -1
	e, _ := newTestEngine(p)
	assert.Equal(t, ModeDisabled, e.HandleSample(pad(nil, 5)))

	p.EnableButton = 30
	e, _ = newTestEngine(p)
	assert.Equal(t, ModeDisabled, e.HandleSample(pad(nil, 5)))
}

func TestTurboBeatsNormal(t *testing.T) {
	p := Defaults()
	p.EnableTurboButton = 4
	e, sink := newTestEngine(p)

	assert.Equal(t, ModeTurbo, e.HandleSample(pad(map[int]float64{5: 0.8}, 4, 5)))
	assert.InDelta(t, 0.8, sink.last(t).Linear.X, 1e-9)

	assert.Equal(t, ModeTurbo, e.HandleSample(pad(map[int]float64{5: 0.8}, 4)), "turbo alone also drives")
}

func TestAutorunRamp(t *testing.T) {
	e, sink := newTestEngine(autorunParams())

	assert.Equal(t, ModeAutorun, e.HandleSample(pad(map[int]float64{5: 1.0}, 7)))
	assert.InDelta(t, 0.1, sink.last(t).Linear.X, 1e-9)

	e.HandleSample(pad(map[int]float64{5: 1.0}, 7))
	assert.InDelta(t, 0.2, sink.last(t).Linear.X, 1e-9, "holding the toggle does not re-toggle")

	for i := 0; i < 20; i++ {
		e.HandleSample(pad(map[int]float64{5: 1.0}))
	}
	assert.InDelta(t, 1.0, sink.last(t).Linear.X, 1e-9, "clamped at the autorun scale")

	e.HandleSample(pad(map[int]float64{5: -0.5}))
	assert.InDelta(t, 0.95, sink.last(t).Linear.X, 1e-9)

	e.HandleSample(pad(nil))
	assert.InDelta(t, 0.95, sink.last(t).Linear.X, 1e-9, "cruise holds with the stick centered")
	assert.Equal(t, ModeAutorun, e.Status().Mode)
}

func TestAutorunRampNegative(t *testing.T) {
	e, sink := newTestEngine(autorunParams())

	e.HandleSample(pad(map[int]float64{5: -1.0}, 7))
	assert.InDelta(t, -0.1, sink.last(t).Linear.X, 1e-9)

	for i := 0; i < 20; i++ {
		e.HandleSample(pad(map[int]float64{5: -1.0}))
	}
	assert.InDelta(t, -1.0, sink.last(t).Linear.X, 1e-9, "clamped at minus the autorun scale")

	e.HandleSample(pad(map[int]float64{5: 0.5}))
	assert.InDelta(t, -0.95, sink.last(t).Linear.X, 1e-9)
}

func TestAutorunSurvivesNonFiniteAxis(t *testing.T) {
	e, sink := newTestEngine(autorunParams())

	e.HandleSample(pad(map[int]float64{5: 1.0}, 7))
	e.HandleSample(pad(map[int]float64{5: math.NaN()}))
	assert.InDelta(t, 0.1, sink.last(t).Linear.X, 1e-9)

	e.HandleSample(pad(map[int]float64{5: math.Inf(-1)}))
	e.HandleSample(pad(map[int]float64{5: 1.0}))
	assert.InDelta(t, 0.2, sink.last(t).Linear.X, 1e-9)
	assert.InDelta(t, 0.2, e.Status().RampedForward, 1e-9)

	_, err := json.Marshal(twist.ToMessage(sink.last(t), time.Now()))
	assert.NoError(t, err)
}

func TestAutorunToggleOffResetsRamp(t *testing.T) {
	e, sink := newTestEngine(autorunParams())

	e.HandleSample(pad(map[int]float64{5: 1.0}, 7))
	e.HandleSample(pad(map[int]float64{5: 1.0}))
	assert.InDelta(t, 0.2, e.Status().RampedForward, 1e-9)

	mode := e.HandleSample(pad(map[int]float64{5: 1.0}, 7))
	assert.Equal(t, ModeDisabled, mode)
	assert.False(t, e.Status().AutorunEnabled)
	assert.Zero(t, e.Status().RampedForward)
	assert.True(t, sink.last(t).IsZero())

	e.HandleSample(pad(map[int]float64{5: 1.0}))
	e.HandleSample(pad(map[int]float64{5: 1.0}, 7))
	assert.InDelta(t, 0.1, sink.last(t).Linear.X, 1e-9, "ramp restarts from zero")
}

func TestAutorunBeatsTurbo(t *testing.T) {
	p := autorunParams()
	p.EnableTurboButton = 4
	e, sink := newTestEngine(p)

	assert.Equal(t, ModeAutorun, e.HandleSample(pad(map[int]float64{5: 1.0}, 4, 5, 7)))
	assert.InDelta(t, 0.1, sink.last(t).Linear.X, 1e-9)
}

func TestAutorunYawAdjustmentIsClamped(t *testing.T) {
	e, sink := newTestEngine(autorunParams())

	e.HandleSample(pad(map[int]float64{2: 0.3, 3: 0.4}, 7))
	assert.InDelta(t, 0.7, sink.last(t).Angular.Z, 1e-9)

	e.HandleSample(pad(map[int]float64{2: 0.9, 3: 0.8}))
	assert.InDelta(t, 1.0, sink.last(t).Angular.Z, 1e-9)

	e.HandleSample(pad(map[int]float64{2: -0.9, 3: -0.8}))
	assert.InDelta(t, -1.0, sink.last(t).Angular.Z, 1e-9)
}

func TestAdjustmentAxesIgnoredOutsideAutorun(t *testing.T) {
	e, sink := newTestEngine(Defaults())

	e.HandleSample(pad(map[int]float64{2: 0.2, 3: 1.0}, 5))
	assert.InDelta(t, 0.1, sink.last(t).Angular.Z, 1e-9)
}

func TestAutorunButtonOutsideSampleIsIgnored(t *testing.T) {
	p := Defaults()
	p.EnableAutorunButton = 40
	e, _ := newTestEngine(p)

	assert.Equal(t, ModeNormal, e.HandleSample(pad(nil, 5)))
	assert.False(t, e.Status().AutorunEnabled)
}

func TestParamUpdatesApplyToNextSample(t *testing.T) {
	store := NewStore(Defaults())
	sink := &recordingSink{}
	e := NewEngine(store, sink)

	e.HandleSample(pad(map[int]float64{5: 1.0}, 5))
	assert.InDelta(t, 0.5, sink.last(t).Linear.X, 1e-9)

	res := store.SetParameters([]Parameter{{Name: "scale_linear.x", Value: DoubleValue(0.25)}})
	require.True(t, res.Successful)

	e.HandleSample(pad(map[int]float64{5: 1.0}, 5))
	assert.InDelta(t, 0.25, sink.last(t).Linear.X, 1e-9)
	assert.Equal(t, uint64(1), e.Status().ParamsVersion)
}

func TestHalt(t *testing.T) {
	e, sink := newTestEngine(autorunParams())

	e.HandleSample(pad(map[int]float64{5: 1.0}, 7))
	require.Len(t, sink.cmds, 1)

	assert.True(t, e.Halt())
	assert.False(t, e.Halt())
	require.Len(t, sink.cmds, 2)
	assert.True(t, sink.last(t).IsZero())

	st := e.Status()
	assert.Equal(t, ModeDisabled, st.Mode)
	assert.True(t, st.StopSent)
	assert.True(t, st.AutorunEnabled, "halt leaves autorun alone")
	assert.InDelta(t, 0.1, st.RampedForward, 1e-9)
}

func TestClampSymmetric(t *testing.T) {
	assert.Equal(t, 1.0, clampSymmetric(3, 1))
	assert.Equal(t, -1.0, clampSymmetric(-3, 1))
	assert.Equal(t, 0.5, clampSymmetric(0.5, 1))
	assert.Equal(t, 2.0, clampSymmetric(0.5, -2))
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	var seen int
	MultiSink{a, b, SinkFunc(func(twist.Twist) { seen++ })}.Publish(twist.Stop())

	assert.Len(t, a.cmds, 1)
	assert.Len(t, b.cmds, 1)
	assert.Equal(t, 1, seen)
}

func TestModeJSON(t *testing.T) {
	data, err := json.Marshal(Status{Mode: ModeTurbo, ParamsVersion: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"mode":"turbo","autorun_enabled":false,"ramped_forward":0,"stop_sent":false,"params_version":3}`, string(data))

	var st Status
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, ModeTurbo, st.Mode)

	_, err = ParseMode("warp")
	assert.Error(t, err)
}
