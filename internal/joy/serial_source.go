// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package joy

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
)

type lineSource struct {
	reader *bufio.Reader
}

// NewSerialSource opens a serial joystick bridge that streams $PJOY sentences.
func NewSerialSource(portName string, baud int) (Source, io.Closer, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("open joystick serial port %s: %w", portName, err)
	}
	log.Printf("joy: serial port opened on %s at %d baud", portName, baud)

	return newLineSource(port), port, nil
}

func newLineSource(r io.Reader) *lineSource {
	return &lineSource{reader: bufio.NewReader(r)}
}

// Next blocks until a valid $PJOY sentence arrives. Noise, partial lines,
// and other sentence types are skipped.
func (s *lineSource) Next() (Sample, error) {
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return Sample{}, fmt.Errorf("joystick serial read: %w", err)
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := ParseSentence(line)
		if err != nil {
			// partial sentences are common right after the port opens
			continue
		}

		joy, ok := sentence.(JOY)
		if !ok {
			continue
		}
		out := joy.Sample()
		out.StampMs = time.Now().UnixMilli()
		return out, nil
	}
}
