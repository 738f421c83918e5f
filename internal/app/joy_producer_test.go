// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/teleop_joy/internal/config"
	"github.com/relabs-tech/teleop_joy/internal/joy"
)

type sampleLog struct {
	mu      sync.Mutex
	samples []joy.Sample
}

func (l *sampleLog) add(s joy.Sample) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.samples = append(l.samples, s)
}

func (l *sampleLog) all() []joy.Sample {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]joy.Sample(nil), l.samples...)
}

func TestForwardSamplesPublishesInOrder(t *testing.T) {
	in := make(chan joy.Sample, 3)
	in <- joy.Sample{Axes: []float64{0.1}}
	in <- joy.Sample{Axes: []float64{0.2}}
	close(in)

	var got sampleLog
	forwardSamples(context.Background(), in, 0, got.add)

	all := got.all()
	require.Len(t, all, 2)
	assert.Equal(t, 0.1, all[0].Axes[0])
	assert.Equal(t, 0.2, all[1].Axes[0])
}

func TestForwardSamplesAutorepeat(t *testing.T) {
	in := make(chan joy.Sample)
	ctx, cancel := context.WithCancel(context.Background())
	var got sampleLog
	done := make(chan struct{})
	go func() {
		forwardSamples(ctx, in, 20*time.Millisecond, got.add)
		close(done)
	}()

	in <- joy.Sample{Axes: []float64{0.5}, Buttons: []int64{1}, StampMs: 1}

	require.Eventually(t, func() bool { return len(got.all()) >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	all := got.all()
	assert.Equal(t, int64(1), all[0].StampMs)
	for _, s := range all[1:] {
		assert.Equal(t, []float64{0.5}, s.Axes)
		assert.Equal(t, []int64{1}, s.Buttons)
		assert.Greater(t, s.StampMs, int64(1))
	}
}

func TestForwardSamplesNoRepeatBeforeFirstSample(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	var got sampleLog
	forwardSamples(ctx, make(chan joy.Sample), 10*time.Millisecond, got.add)
	assert.Empty(t, got.all())
}

type scriptedSource struct {
	samples []joy.Sample
	err     error
}

func (s *scriptedSource) Next() (joy.Sample, error) {
	if len(s.samples) == 0 {
		return joy.Sample{}, s.err
	}
	next := s.samples[0]
	s.samples = s.samples[1:]
	return next, nil
}

func TestReadSamplesStopsOnError(t *testing.T) {
	boom := errors.New("unplugged")
	src := &scriptedSource{samples: []joy.Sample{{Axes: []float64{1}}}, err: boom}

	out, errc := readSamples(context.Background(), src, 0)

	var n int
	for range out {
		n++
	}
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, <-errc, boom)
}

func TestOpenJoySourceMock(t *testing.T) {
	cfg := config.Defaults()
	src, closer, pace, err := openJoySource(cfg)
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.Equal(t, 50*time.Millisecond, pace)

	s, err := src.Next()
	require.NoError(t, err)
	assert.Len(t, s.Axes, 8)

	cfg.JoySource = "wiimote"
	_, _, _, err = openJoySource(cfg)
	assert.Error(t, err)
}
