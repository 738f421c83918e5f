// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package teleop

import "fmt"

// Channel is one component of the velocity command.
type Channel int

const (
	ChannelX Channel = iota
	ChannelY
	ChannelZ
	ChannelYaw
	ChannelPitch
	ChannelRoll
)

var (
	linearChannels  = []Channel{ChannelX, ChannelY, ChannelZ}
	angularChannels = []Channel{ChannelYaw, ChannelPitch, ChannelRoll}
)

func (c Channel) String() string {
	switch c {
	case ChannelX:
		return "x"
	case ChannelY:
		return "y"
	case ChannelZ:
		return "z"
	case ChannelYaw:
		return "yaw"
	case ChannelPitch:
		return "pitch"
	case ChannelRoll:
		return "roll"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

// Unmapped marks a channel with no joystick axis. Any negative index is
// treated the same way.
const Unmapped int64 = -1

// AxisMap holds the joystick axis index driving each channel.
type AxisMap struct {
	X, Y, Z          int64
	Yaw, Pitch, Roll int64
}

// UnmappedAxes returns a map with every channel unmapped.
func UnmappedAxes() AxisMap {
	return AxisMap{X: Unmapped, Y: Unmapped, Z: Unmapped, Yaw: Unmapped, Pitch: Unmapped, Roll: Unmapped}
}

// Index returns the axis index for c.
func (m AxisMap) Index(c Channel) int64 {
	if p := m.field(c); p != nil {
		return *p
	}
	return Unmapped
}

func (m *AxisMap) set(c Channel, idx int64) {
	if p := m.field(c); p != nil {
		*p = idx
	}
}

func (m *AxisMap) field(c Channel) *int64 {
	switch c {
	case ChannelX:
		return &m.X
	case ChannelY:
		return &m.Y
	case ChannelZ:
		return &m.Z
	case ChannelYaw:
		return &m.Yaw
	case ChannelPitch:
		return &m.Pitch
	case ChannelRoll:
		return &m.Roll
	}
	return nil
}

// ScaleMap holds the factor applied to each channel's axis value.
type ScaleMap struct {
	X, Y, Z          float64
	Yaw, Pitch, Roll float64
}

// Factor returns the scale for c.
func (m ScaleMap) Factor(c Channel) float64 {
	if p := m.field(c); p != nil {
		return *p
	}
	return 0
}

func (m *ScaleMap) set(c Channel, v float64) {
	if p := m.field(c); p != nil {
		*p = v
	}
}

func (m *ScaleMap) field(c Channel) *float64 {
	switch c {
	case ChannelX:
		return &m.X
	case ChannelY:
		return &m.Y
	case ChannelZ:
		return &m.Z
	case ChannelYaw:
		return &m.Yaw
	case ChannelPitch:
		return &m.Pitch
	case ChannelRoll:
		return &m.Roll
	}
	return nil
}
