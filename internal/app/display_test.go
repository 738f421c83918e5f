package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/teleop_joy/internal/teleop"
	"github.com/relabs-tech/teleop_joy/internal/twist"
)

func TestDisplayLines(t *testing.T) {
	assert.Equal(t, []string{"", "Teleop", "Waiting..."}, displayLines(teleop.Status{}, false, twist.Message{}, false))

	st := teleop.Status{Mode: teleop.ModeAutorun, AutorunEnabled: true, RampedForward: 0.5, ParamsVersion: 3}
	cmd := twist.Message{Linear: twist.Vector3{X: 0.5}, Angular: twist.Vector3{Z: -1}}
	assert.Equal(t, []string{
		"Mode: autorun",
		"Cruise:  0.50",
		"X:     0.50 m/s",
		"Yaw:  -1.00 r/s",
		"Params v3",
	}, displayLines(st, true, cmd, true))

	assert.Equal(t, []string{"Mode: disabled", "Params v0"}, displayLines(teleop.Status{}, true, twist.Message{}, false))
}

func TestRenderLinesDrawsPixels(t *testing.T) {
	blank := renderLines(nil)
	for _, b := range blank.Pix {
		assert.Zero(t, b)
	}

	img := renderLines([]string{"Mode: normal"})
	lit := 0
	for _, b := range img.Pix {
		if b != 0 {
			lit++
		}
	}
	assert.Greater(t, lit, 0)
	assert.Len(t, img.Pix, displayWidth*displayHeight/8)
}
