// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package canbus

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"

	"github.com/relabs-tech/teleop_joy/internal/twist"
)

// writeTimeout bounds a single frame transmission.
const writeTimeout = 50 * time.Millisecond

// FrameWriter sends CAN frames.
type FrameWriter interface {
	WriteFrame(ctx context.Context, frame can.Frame) error
	Close() error
}

// SocketCANWriter transmits frames on a Linux SocketCAN interface.
type SocketCANWriter struct {
	conn net.Conn
	tx   *socketcan.Transmitter
}

// NewSocketCANWriter opens iface (e.g. "can0", "vcan0").
func NewSocketCANWriter(ctx context.Context, iface string) (*SocketCANWriter, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial %s: %w", iface, err)
	}
	return &SocketCANWriter{
		conn: conn,
		tx:   socketcan.NewTransmitter(conn),
	}, nil
}

func (w *SocketCANWriter) WriteFrame(ctx context.Context, frame can.Frame) error {
	return w.tx.TransmitFrame(ctx, frame)
}

func (w *SocketCANWriter) Close() error {
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// Sink forwards every command to the bus as a drive frame. It must be
// used from one goroutine.
type Sink struct {
	w       FrameWriter
	id      uint32
	counter uint8
}

// NewSink creates a sink writing frames with the given ID.
func NewSink(w FrameWriter, id uint32) *Sink {
	return &Sink{w: w, id: id}
}

// Publish encodes and transmits cmd. Transmit errors are logged and the
// command dropped.
func (s *Sink) Publish(cmd twist.Twist) {
	frame := EncodeCommand(s.id, cmd, s.counter)
	s.counter++

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.w.WriteFrame(ctx, frame); err != nil {
		log.Printf("canbus: write frame 0x%X: %v", s.id, err)
	}
}
