// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package twist holds the velocity command produced by the teleop engine
// and its JSON wire form.
package twist

import (
	"fmt"
	"time"

	"github.com/golang/geo/r3"
)

// Twist is a body velocity command. Angular components are roll (X),
// pitch (Y) and yaw (Z). The zero value is a full stop.
type Twist struct {
	Linear  r3.Vector
	Angular r3.Vector
}

// Stop returns the all-zero command.
func Stop() Twist {
	return Twist{}
}

// IsZero reports whether every component is zero.
func (t Twist) IsZero() bool {
	return t.Linear == (r3.Vector{}) && t.Angular == (r3.Vector{})
}

func (t Twist) String() string {
	return fmt.Sprintf("linear=[%.3f %.3f %.3f] angular=[%.3f %.3f %.3f]",
		t.Linear.X, t.Linear.Y, t.Linear.Z,
		t.Angular.X, t.Angular.Y, t.Angular.Z)
}

// Vector3 is the JSON form of a 3D vector.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Message is the JSON payload published on the cmd_vel topic.
type Message struct {
	Linear  Vector3 `json:"linear"`  // m/s
	Angular Vector3 `json:"angular"` // rad/s
	StampMs int64   `json:"stamp_ms"`
}

// ToMessage stamps a command for publishing.
func ToMessage(t Twist, stamp time.Time) Message {
	return Message{
		Linear:  Vector3{X: t.Linear.X, Y: t.Linear.Y, Z: t.Linear.Z},
		Angular: Vector3{X: t.Angular.X, Y: t.Angular.Y, Z: t.Angular.Z},
		StampMs: stamp.UnixMilli(),
	}
}

// Twist converts a received message back into a command.
func (m Message) Twist() Twist {
	return Twist{
		Linear:  r3.Vector{X: m.Linear.X, Y: m.Linear.Y, Z: m.Linear.Z},
		Angular: r3.Vector{X: m.Angular.X, Y: m.Angular.Y, Z: m.Angular.Z},
	}
}

// Latency is the age of the message relative to now.
func (m Message) Latency(now time.Time) time.Duration {
	if m.StampMs == 0 {
		return 0
	}
	return now.Sub(time.UnixMilli(m.StampMs))
}
