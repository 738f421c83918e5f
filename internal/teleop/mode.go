// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package teleop

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mode is the command-generation behavior selected for a sample.
type Mode int

const (
	ModeDisabled Mode = iota
	ModeNormal
	ModeTurbo
	ModeAutorun
)

func (m Mode) String() string {
	switch m {
	case ModeDisabled:
		return "disabled"
	case ModeNormal:
		return "normal"
	case ModeTurbo:
		return "turbo"
	case ModeAutorun:
		return "autorun"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a mode name into a Mode.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "disabled":
		return ModeDisabled, nil
	case "normal":
		return ModeNormal, nil
	case "turbo":
		return ModeTurbo, nil
	case "autorun":
		return ModeAutorun, nil
	default:
		return ModeDisabled, fmt.Errorf("unknown mode %q", value)
	}
}

// MarshalJSON encodes the mode by name.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes a mode name.
func (m *Mode) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	parsed, err := ParseMode(name)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
