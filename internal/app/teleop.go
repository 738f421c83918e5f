// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/relabs-tech/teleop_joy/internal/canbus"
	"github.com/relabs-tech/teleop_joy/internal/config"
	"github.com/relabs-tech/teleop_joy/internal/joy"
	"github.com/relabs-tech/teleop_joy/internal/teleop"
	"github.com/relabs-tech/teleop_joy/internal/twist"
)

const (
	sampleQueueLen   = 64
	minWatchdogCheck = 10 * time.Millisecond
)

// MQTTSink publishes every command as a twist.Message.
type MQTTSink struct {
	pub   publisher
	topic string
	now   func() time.Time
}

// NewMQTTSink creates a sink publishing to topic.
func NewMQTTSink(pub publisher, topic string) *MQTTSink {
	return &MQTTSink{pub: pub, topic: topic, now: time.Now}
}

func (s *MQTTSink) Publish(cmd twist.Twist) {
	publishJSON(s.pub, s.topic, false, twist.ToMessage(cmd, s.now()), "teleop")
}

// teleopNode owns the engine. Only run touches the engine; MQTT callbacks
// hand samples over through the samples channel.
type teleopNode struct {
	cfg    *config.Config
	pub    publisher
	store  *teleop.Store
	engine *teleop.Engine
	sink   teleop.Sink

	samples chan joy.Sample
	dropped atomic.Uint64

	lastStatus teleop.Status
	haveStatus bool
}

func newTeleopNode(cfg *config.Config, pub publisher, store *teleop.Store, sink teleop.Sink) *teleopNode {
	return &teleopNode{
		cfg:     cfg,
		pub:     pub,
		store:   store,
		engine:  teleop.NewEngine(store, sink),
		sink:    sink,
		samples: make(chan joy.Sample, sampleQueueLen),
	}
}

// onJoy decodes a joystick sample and queues it for the engine.
func (n *teleopNode) onJoy(payload []byte) {
	var s joy.Sample
	if err := json.Unmarshal(payload, &s); err != nil {
		log.Printf("teleop: joy unmarshal error: %v", err)
		return
	}
	if !s.Finite() {
		log.Printf("teleop: dropping sample with non-finite axes")
		return
	}
	select {
	case n.samples <- s:
	default:
		n.dropped.Add(1)
		log.Printf("teleop: sample queue full, dropped sample (buttons=%v, %d dropped so far)", s.Buttons, n.dropped.Load())
	}
}

// onParamSet applies a parameter request and answers on the result topic.
func (n *teleopNode) onParamSet(payload []byte) {
	id, updates, err := teleop.DecodeParamRequest(payload)
	if err != nil {
		log.Printf("teleop: parameter request error: %v", err)
		publishJSON(n.pub, n.cfg.TopicParamResult, false, teleop.ParamResponse{
			ID:      id,
			Reason:  err.Error(),
			Version: n.store.Snapshot().Version,
		}, "teleop")
		return
	}

	res := n.store.SetParameters(updates)
	publishJSON(n.pub, n.cfg.TopicParamResult, false, teleop.ParamResponse{
		ID:         id,
		Successful: res.Successful,
		Reason:     res.Reason,
		Version:    n.store.Snapshot().Version,
	}, "teleop")
	if res.Successful {
		n.publishState()
	}
}

func (n *teleopNode) publishState() {
	publishJSON(n.pub, n.cfg.TopicParamState, true, n.store.Snapshot().State(), "teleop")
}

// publishStatus publishes the engine status when it differs from the last
// published one.
func (n *teleopNode) publishStatus() {
	st := n.engine.Status()
	if n.haveStatus && st == n.lastStatus {
		return
	}
	n.lastStatus, n.haveStatus = st, true
	publishJSON(n.pub, n.cfg.TopicStatus, true, st, "teleop")
}

// run feeds queued samples to the engine until ctx is done. With a
// positive timeout the dead-man stop also fires when no sample arrived
// within it.
func (n *teleopNode) run(ctx context.Context, timeout time.Duration) {
	var watchdog <-chan time.Time
	if timeout > 0 {
		check := timeout / 2
		if check < minWatchdogCheck {
			check = minWatchdogCheck
		}
		ticker := time.NewTicker(check)
		defer ticker.Stop()
		watchdog = ticker.C
	}

	lastSample := time.Now()
	n.publishStatus()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-n.samples:
			lastSample = time.Now()
			n.engine.HandleSample(s)
			n.publishStatus()
		case now := <-watchdog:
			if now.Sub(lastSample) < timeout {
				continue
			}
			if n.engine.Halt() {
				log.Printf("teleop: no joystick input for %s, stopping", now.Sub(lastSample).Round(time.Millisecond))
			}
			n.publishStatus()
		}
	}
}

// shutdown sends a final stop straight to the sinks, whatever the latch
// says. The MQTT client flushes it while disconnecting.
func (n *teleopNode) shutdown() {
	n.sink.Publish(twist.Stop())
}

// RunTeleop runs the teleop node: joystick samples in, velocity commands out.
func RunTeleop() error {
	cfg := config.Get()
	defer setupLogging(cfg).Close()

	params := teleop.Defaults()
	if cfg.TeleopParamsFile != "" {
		var err error
		params, err = teleop.LoadParamsFile(cfg.TeleopParamsFile)
		if err != nil {
			return err
		}
		log.Printf("teleop: loaded parameters from %s", cfg.TeleopParamsFile)
	}
	params.LogSummary(log.Printf)
	store := teleop.NewStore(params)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := connectMQTT(cfg, config.ClientID(cfg.MQTTClientIDTeleop, "node"), "teleop")
	if err != nil {
		return err
	}
	defer client.Disconnect(500)

	sinks := teleop.MultiSink{NewMQTTSink(client, cfg.TopicCmdVel)}
	if cfg.CANInterface != "" {
		w, err := canbus.NewSocketCANWriter(ctx, cfg.CANInterface)
		if err != nil {
			return err
		}
		defer w.Close()
		sinks = append(sinks, canbus.NewSink(w, cfg.CANFrameID))
		log.Printf("teleop: sending drive frames 0x%X on %s", cfg.CANFrameID, cfg.CANInterface)
	}

	node := newTeleopNode(cfg, client, store, sinks)
	node.publishState()

	if err := subscribe(client, cfg.TopicJoy, "teleop", node.onJoy); err != nil {
		return err
	}
	if cfg.TopicParamSet != "" {
		if err := subscribe(client, cfg.TopicParamSet, "teleop", node.onParamSet); err != nil {
			return err
		}
	}

	timeout := time.Duration(cfg.JoyTimeoutMs) * time.Millisecond
	if timeout > 0 {
		log.Printf("teleop: stopping after %s without joystick input", timeout)
	}
	node.run(ctx, timeout)

	log.Println("teleop: shutting down")
	node.shutdown()
	return nil
}
