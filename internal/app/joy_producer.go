// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/teleop_joy/internal/config"
	"github.com/relabs-tech/teleop_joy/internal/joy"
)

// openJoySource opens the configured joystick. pace is the delay between
// reads for sources that do not block on their own.
func openJoySource(cfg *config.Config) (src joy.Source, closer io.Closer, pace time.Duration, err error) {
	switch cfg.JoySource {
	case config.JoySourceMock:
		log.Println("joy: using mock joystick source")
		return joy.NewMockSource(), nil, time.Duration(cfg.JoySampleInterval) * time.Millisecond, nil
	case config.JoySourceEvdev:
		src, closer, err = joy.NewEvdevSource(cfg.JoyDevice)
		if err != nil {
			return nil, nil, 0, err
		}
		log.Printf("joy: reading evdev device %s", cfg.JoyDevice)
		return src, closer, 0, nil
	case config.JoySourceSerial:
		src, closer, err = joy.NewSerialSource(cfg.JoySerialPort, cfg.JoyBaudRate)
		if err != nil {
			return nil, nil, 0, err
		}
		log.Printf("joy: serial bridge opened on %s at %d baud", cfg.JoySerialPort, cfg.JoyBaudRate)
		return src, closer, 0, nil
	default:
		return nil, nil, 0, fmt.Errorf("unknown joystick source %q", cfg.JoySource)
	}
}

// readSamples pumps src into a channel until a read fails or ctx is done.
// The read error, if any, is delivered on errc.
func readSamples(ctx context.Context, src joy.Source, pace time.Duration) (<-chan joy.Sample, <-chan error) {
	out := make(chan joy.Sample)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		for {
			s, err := src.Next()
			if err != nil {
				errc <- err
				return
			}
			select {
			case out <- s:
			case <-ctx.Done():
				return
			}
			if pace > 0 {
				select {
				case <-time.After(pace):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, errc
}

// forwardSamples publishes every sample, and republishes the last one when
// the source has been quiet for repeat. Event-driven sources only report
// changes, so a held stick would otherwise look like silence downstream.
func forwardSamples(ctx context.Context, samples <-chan joy.Sample, repeat time.Duration, publish func(joy.Sample)) {
	var tick <-chan time.Time
	if repeat > 0 {
		ticker := time.NewTicker(repeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	var (
		last     joy.Sample
		haveLast bool
		lastSent time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-samples:
			if !ok {
				return
			}
			last, haveLast = s.Clone(), true
			lastSent = time.Now()
			publish(s)
		case now := <-tick:
			if !haveLast || now.Sub(lastSent) < repeat {
				continue
			}
			repeated := last.Clone()
			repeated.StampMs = now.UnixMilli()
			lastSent = now
			publish(repeated)
		}
	}
}

// RunJoyProducer reads the configured joystick and publishes samples as
// JSON to the joy topic.
func RunJoyProducer() error {
	cfg := config.Get()
	defer setupLogging(cfg).Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	src, closer, pace, err := openJoySource(cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	client, err := connectMQTT(cfg, config.ClientID(cfg.MQTTClientIDJoy, "joy"), "joy")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	repeat := time.Duration(cfg.JoyAutorepeatMs) * time.Millisecond
	if repeat > 0 {
		log.Printf("joy: repeating the last sample every %s while idle", repeat)
	}

	samples, errc := readSamples(ctx, src, pace)
	forwardSamples(ctx, samples, repeat, func(s joy.Sample) {
		publishJSON(client, cfg.TopicJoy, false, s, "joy")
	})

	select {
	case err := <-errc:
		if err == io.EOF {
			log.Println("joy: source closed")
			return nil
		}
		return fmt.Errorf("joystick read: %w", err)
	default:
		log.Println("joy: shutting down")
		return nil
	}
}
