package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/teleop_joy/internal/config"
	"github.com/relabs-tech/teleop_joy/internal/teleop"
	"github.com/relabs-tech/teleop_joy/internal/twist"
)

func formatCmdVel(m twist.Message, now time.Time) string {
	return fmt.Sprintf(
		"[CMD ]  lin=(%6.3f %6.3f %6.3f)  ang=(%6.3f %6.3f %6.3f)  age=%s",
		m.Linear.X, m.Linear.Y, m.Linear.Z,
		m.Angular.X, m.Angular.Y, m.Angular.Z,
		m.Latency(now).Round(time.Millisecond),
	)
}

func formatStatus(st teleop.Status) string {
	return fmt.Sprintf(
		"[MODE]  %-8s autorun=%-5t ramp=%6.3f stopped=%-5t params=v%d",
		st.Mode, st.AutorunEnabled, st.RampedForward, st.StopSent, st.ParamsVersion,
	)
}

func formatParamResult(r teleop.ParamResponse) string {
	if r.Successful {
		return fmt.Sprintf("[PARM]  %s applied, now v%d", r.ID, r.Version)
	}
	return fmt.Sprintf("[PARM]  %s rejected: %s", r.ID, r.Reason)
}

// RunConsoleMQTT prints everything the teleop node publishes.
func RunConsoleMQTT() error {
	cfg := config.Get()
	defer setupLogging(cfg).Close()

	client, err := connectMQTT(cfg, config.ClientID(cfg.MQTTClientIDConsole, "console"), "console")
	if err != nil {
		return err
	}

	// Subscribe to commands
	err = subscribe(client, cfg.TopicCmdVel, "console", func(payload []byte) {
		var m twist.Message
		if err := json.Unmarshal(payload, &m); err != nil {
			log.Printf("console: cmd_vel unmarshal error: %v", err)
			return
		}
		fmt.Println(formatCmdVel(m, time.Now()))
	})
	if err != nil {
		return err
	}

	// Subscribe to engine status
	err = subscribe(client, cfg.TopicStatus, "console", func(payload []byte) {
		var st teleop.Status
		if err := json.Unmarshal(payload, &st); err != nil {
			log.Printf("console: status unmarshal error: %v", err)
			return
		}
		fmt.Println(formatStatus(st))
	})
	if err != nil {
		return err
	}

	// Subscribe to parameter results
	err = subscribe(client, cfg.TopicParamResult, "console", func(payload []byte) {
		var r teleop.ParamResponse
		if err := json.Unmarshal(payload, &r); err != nil {
			log.Printf("console: param result unmarshal error: %v", err)
			return
		}
		fmt.Println(formatParamResult(r))
	})
	if err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
