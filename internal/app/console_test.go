package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/teleop_joy/internal/teleop"
	"github.com/relabs-tech/teleop_joy/internal/twist"
)

func TestFormatCmdVel(t *testing.T) {
	m := twist.Message{
		Linear:  twist.Vector3{X: 0.4},
		Angular: twist.Vector3{Z: -0.25},
		StampMs: 1000,
	}
	line := formatCmdVel(m, time.UnixMilli(1042))

	assert.Equal(t, "[CMD ]  lin=( 0.400  0.000  0.000)  ang=( 0.000  0.000 -0.250)  age=42ms", line)
}

func TestFormatStatus(t *testing.T) {
	line := formatStatus(teleop.Status{Mode: teleop.ModeAutorun, AutorunEnabled: true, RampedForward: 0.3, ParamsVersion: 2})
	assert.Equal(t, "[MODE]  autorun  autorun=true  ramp= 0.300 stopped=false params=v2", line)
}

func TestFormatParamResult(t *testing.T) {
	assert.Equal(t, "[PARM]  a applied, now v3",
		formatParamResult(teleop.ParamResponse{ID: "a", Successful: true, Version: 3}))
	assert.Equal(t, "[PARM]  b rejected: Parameter 'x' is not declared.",
		formatParamResult(teleop.ParamResponse{ID: "b", Reason: "Parameter 'x' is not declared."}))
}
