// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package joy

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// TypeJOY is the sentence type of the serial bridge's proprietary sentence.
const TypeJOY = "JOY"

// JOY is the proprietary NMEA 0183 sentence emitted by the serial joystick bridge:
//
//	$PJOY,<nAxes>,<a0>,...,<nButtons>,<b0>,...*CS
type JOY struct {
	nmea.BaseSentence
	Axes    []float64
	Buttons []int64
}

// Sample converts the sentence into a joystick sample.
func (j JOY) Sample() Sample {
	return Sample{Axes: j.Axes, Buttons: j.Buttons}
}

var sentenceParser = nmea.SentenceParser{
	CustomParsers: map[string]nmea.ParserFunc{
		TypeJOY: newJOY,
	},
}

// ParseSentence parses one raw line. Non-JOY sentences are returned as-is
// so callers can ignore them.
func ParseSentence(raw string) (nmea.Sentence, error) {
	return sentenceParser.Parse(raw)
}

func newJOY(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	p.AssertType(TypeJOY)
	if err := p.Err(); err != nil {
		return nil, err
	}
	if len(s.Fields) < 2 {
		return nil, fmt.Errorf("nmea: PJOY needs at least 2 fields, got %d", len(s.Fields))
	}

	nAxes := int(p.Int64(0, "axis count"))
	if err := p.Err(); err != nil {
		return nil, err
	}
	if nAxes < 0 || len(s.Fields) < nAxes+2 {
		return nil, fmt.Errorf("nmea: PJOY axis count %d does not match %d fields", nAxes, len(s.Fields))
	}
	axes := make([]float64, nAxes)
	for i := range axes {
		axes[i] = p.Float64(1+i, "axis")
		if math.IsNaN(axes[i]) || math.IsInf(axes[i], 0) {
			return nil, fmt.Errorf("nmea: PJOY axis %d is not finite: %s", i, s.Fields[1+i])
		}
	}

	bi := 1 + nAxes
	nButtons := int(p.Int64(bi, "button count"))
	if err := p.Err(); err != nil {
		return nil, err
	}
	if nButtons < 0 || len(s.Fields) != bi+1+nButtons {
		return nil, fmt.Errorf("nmea: PJOY button count %d does not match %d fields", nButtons, len(s.Fields))
	}
	buttons := make([]int64, nButtons)
	for i := range buttons {
		buttons[i] = p.Int64(bi+1+i, "button")
	}

	return JOY{BaseSentence: s, Axes: axes, Buttons: buttons}, p.Err()
}

// EncodeJOY renders a sample as a checksummed $PJOY sentence (no line ending).
// The serial bridge firmware and the tests use the same layout.
func EncodeJOY(s Sample) string {
	var b strings.Builder
	b.WriteString("PJOY,")
	b.WriteString(strconv.Itoa(len(s.Axes)))
	for _, a := range s.Axes {
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(a, 'f', 4, 64))
	}
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(len(s.Buttons)))
	for _, v := range s.Buttons {
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(v, 10))
	}
	body := b.String()
	return "$" + body + "*" + nmea.Checksum(body)
}
