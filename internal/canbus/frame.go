// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package canbus

import (
	"fmt"
	"math"

	"go.einride.tech/can"

	"github.com/relabs-tech/teleop_joy/internal/twist"
)

// DefaultFrameID is the standard (11-bit) ID of the drive command frame.
const DefaultFrameID uint32 = 0x321

// Drive command frame layout, little-endian bit positions.
const (
	linearXStart  = 0
	linearYStart  = 16
	angularZStart = 32
	modeStart     = 48
	counterStart  = 56

	fieldBits = 16
	byteBits  = 8
	frameLen  = 8
)

const (
	modeStop  = 0
	modeDrive = 1
)

// Command is a decoded drive command frame. Velocities are in m/s and rad/s.
type Command struct {
	LinearX  float64
	LinearY  float64
	AngularZ float64
	Drive    bool
	Counter  uint8
}

// EncodeCommand packs the planar part of cmd into a drive command frame.
// Velocities are sent in milli-units and saturate at the int16 range.
func EncodeCommand(id uint32, cmd twist.Twist, counter uint8) can.Frame {
	f := can.Frame{ID: id, Length: frameLen}
	f.Data.SetSignedBitsLittleEndian(linearXStart, fieldBits, milli(cmd.Linear.X))
	f.Data.SetSignedBitsLittleEndian(linearYStart, fieldBits, milli(cmd.Linear.Y))
	f.Data.SetSignedBitsLittleEndian(angularZStart, fieldBits, milli(cmd.Angular.Z))

	mode := uint64(modeDrive)
	if cmd.IsZero() {
		mode = modeStop
	}
	f.Data.SetUnsignedBitsLittleEndian(modeStart, byteBits, mode)
	f.Data.SetUnsignedBitsLittleEndian(counterStart, byteBits, uint64(counter))
	return f
}

// DecodeCommand unpacks a drive command frame.
func DecodeCommand(f can.Frame) (Command, error) {
	if f.Length != frameLen {
		return Command{}, fmt.Errorf("drive frame 0x%X: expected %d bytes, got %d", f.ID, frameLen, f.Length)
	}
	d := f.Data
	mode := d.UnsignedBitsLittleEndian(modeStart, byteBits)
	if mode != modeStop && mode != modeDrive {
		return Command{}, fmt.Errorf("drive frame 0x%X: unknown mode %d", f.ID, mode)
	}
	return Command{
		LinearX:  float64(d.SignedBitsLittleEndian(linearXStart, fieldBits)) / 1000,
		LinearY:  float64(d.SignedBitsLittleEndian(linearYStart, fieldBits)) / 1000,
		AngularZ: float64(d.SignedBitsLittleEndian(angularZStart, fieldBits)) / 1000,
		Drive:    mode == modeDrive,
		Counter:  uint8(d.UnsignedBitsLittleEndian(counterStart, byteBits)),
	}, nil
}

// milli converts to milli-units, rounding and saturating to int16.
func milli(v float64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	m := math.Round(v * 1000)
	if m > math.MaxInt16 {
		return math.MaxInt16
	}
	if m < math.MinInt16 {
		return math.MinInt16
	}
	return int64(m)
}
