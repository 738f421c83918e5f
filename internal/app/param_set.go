// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/teleop_joy/internal/config"
	"github.com/relabs-tech/teleop_joy/internal/teleop"
)

const paramSetTimeout = 5 * time.Second

// parseAssignments turns "name=value" arguments into literals.
func parseAssignments(args []string) ([]teleop.Literal, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: param_set name=value [name=value ...]")
	}
	out := make([]teleop.Literal, 0, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected name=value", arg)
		}
		if _, declared := teleop.DeclaredKind(name); !declared {
			log.Printf("param_set: warning: %s is not a known parameter", name)
		}
		out = append(out, teleop.Literal{Name: name, Text: strings.TrimSpace(value)})
	}
	return out, nil
}

// RunParamSet sends one parameter batch to the teleop node and waits for
// its answer.
func RunParamSet(args []string) error {
	cfg := config.Get()

	literals, err := parseAssignments(args)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	payload, err := teleop.EncodeParamRequest(id, literals)
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg, config.ClientID(cfg.MQTTClientIDParamSet, "param-set"), "param_set")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	results := make(chan teleop.ParamResponse, 1)
	err = subscribe(client, cfg.TopicParamResult, "param_set", func(payload []byte) {
		var r teleop.ParamResponse
		if err := json.Unmarshal(payload, &r); err != nil || r.ID != id {
			return
		}
		select {
		case results <- r:
		default:
		}
	})
	if err != nil {
		return err
	}

	token := client.Publish(cfg.TopicParamSet, 1, false, payload)
	if !token.WaitTimeout(paramSetTimeout) {
		return fmt.Errorf("publish %s: timed out", cfg.TopicParamSet)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish %s: %w", cfg.TopicParamSet, token.Error())
	}
	log.Printf("param_set: request %s sent", id)

	select {
	case r := <-results:
		fmt.Println(formatParamResult(r))
		if !r.Successful {
			return fmt.Errorf("rejected: %s", r.Reason)
		}
		return nil
	case <-time.After(paramSetTimeout):
		return fmt.Errorf("no answer from the teleop node within %s", paramSetTimeout)
	}
}
