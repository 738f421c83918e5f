// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"time"

	"github.com/relabs-tech/teleop_joy/internal/joy"
	"github.com/relabs-tech/teleop_joy/internal/teleop"
	"github.com/relabs-tech/teleop_joy/internal/twist"
)

// RunMockConsole drives a local engine from the mock joystick and prints
// the commands, without a broker.
func RunMockConsole() error {
	src := joy.NewMockSource()
	store := teleop.NewStore(teleop.Defaults())
	engine := teleop.NewEngine(store, teleop.SinkFunc(func(cmd twist.Twist) {
		fmt.Println(formatCmdVel(twist.ToMessage(cmd, time.Now()), time.Now()))
	}))

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var last teleop.Mode = -1
	for range ticker.C {
		s, err := src.Next()
		if err != nil {
			return err
		}

		mode := engine.HandleSample(s)
		if mode != last {
			fmt.Println(formatStatus(engine.Status()))
			last = mode
		}
	}
	return nil
}
