// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package joy

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/kenshaw/evdev"
)

type axisRange struct {
	min, max int32
}

// evdevState accumulates absolute-axis and key events between SYN_REPORTs.
// Axis and button indices follow ascending event-code order, the way the
// Linux joystick driver numbers them.
type evdevState struct {
	axisIndex   map[uint16]int
	ranges      []axisRange
	buttonIndex map[uint16]int
	axes        []float64
	buttons     []int64
}

func newEvdevState(absCodes map[uint16]axisRange, keyCodes []uint16) *evdevState {
	codes := make([]uint16, 0, len(absCodes))
	for c := range absCodes {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	st := &evdevState{
		axisIndex:   make(map[uint16]int, len(codes)),
		ranges:      make([]axisRange, len(codes)),
		buttonIndex: make(map[uint16]int, len(keyCodes)),
		axes:        make([]float64, len(codes)),
	}
	for i, c := range codes {
		st.axisIndex[c] = i
		st.ranges[i] = absCodes[c]
	}

	keys := append([]uint16(nil), keyCodes...)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	st.buttons = make([]int64, len(keys))
	for i, c := range keys {
		st.buttonIndex[c] = i
	}
	return st
}

func (s *evdevState) abs(code uint16, value int32) {
	i, ok := s.axisIndex[code]
	if !ok {
		return
	}
	s.axes[i] = normalizeAxis(value, s.ranges[i])
}

func (s *evdevState) key(code uint16, value int32) {
	i, ok := s.buttonIndex[code]
	if !ok {
		return
	}
	// 2 is kernel autorepeat, still held
	if value != 0 {
		s.buttons[i] = 1
	} else {
		s.buttons[i] = 0
	}
}

func (s *evdevState) sample() Sample {
	out := Sample{Axes: s.axes, Buttons: s.buttons}
	return out.Clone()
}

// normalizeAxis maps a raw reading onto [-1, 1] using the device range.
func normalizeAxis(v int32, r axisRange) float64 {
	if r.max <= r.min {
		return 0
	}
	n := 2*(float64(v)-float64(r.min))/(float64(r.max)-float64(r.min)) - 1
	if n > 1 {
		return 1
	}
	if n < -1 {
		return -1
	}
	return n
}

type evdevSource struct {
	dev    *evdev.Evdev
	events <-chan *evdev.EventEnvelope
	cancel context.CancelFunc
	state  *evdevState
}

// NewEvdevSource opens a Linux input device (e.g. /dev/input/event4) and
// emits one sample per SYN_REPORT.
func NewEvdevSource(path string) (Source, io.Closer, error) {
	dev, err := evdev.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open joystick device %s: %w", path, err)
	}

	absCodes := make(map[uint16]axisRange)
	for t, ax := range dev.AbsoluteTypes() {
		absCodes[uint16(t)] = axisRange{min: ax.Min, max: ax.Max}
	}
	var keyCodes []uint16
	for t := range dev.KeyTypes() {
		keyCodes = append(keyCodes, uint16(t))
	}
	log.Printf("joy: opened %q on %s (%d axes, %d buttons)", dev.Name(), path, len(absCodes), len(keyCodes))

	ctx, cancel := context.WithCancel(context.Background())
	src := &evdevSource{
		dev:    dev,
		events: dev.Poll(ctx),
		cancel: cancel,
		state:  newEvdevState(absCodes, keyCodes),
	}
	return src, src, nil
}

func (s *evdevSource) Next() (Sample, error) {
	for ev := range s.events {
		if ev == nil {
			break
		}
		switch t := ev.Type.(type) {
		case evdev.AbsoluteType:
			s.state.abs(uint16(t), ev.Value)
		case evdev.KeyType:
			s.state.key(uint16(t), ev.Value)
		case evdev.SyncType:
			if t == evdev.SyncReport {
				out := s.state.sample()
				out.StampMs = time.Now().UnixMilli()
				return out, nil
			}
		}
	}
	return Sample{}, io.EOF
}

func (s *evdevSource) Close() error {
	s.cancel()
	return s.dev.Close()
}
