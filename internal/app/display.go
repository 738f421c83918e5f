package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/teleop_joy/internal/config"
	"github.com/relabs-tech/teleop_joy/internal/teleop"
	"github.com/relabs-tech/teleop_joy/internal/twist"
)

const (
	displayWidth  = 128
	displayHeight = 64
	lineHeight    = 13
)

// DisplayData holds the latest data for display
type DisplayData struct {
	mu sync.RWMutex

	status     teleop.Status
	haveStatus bool

	cmd     twist.Message
	haveCmd bool
}

// displayLines renders the panel text: mode on top, then the command.
func displayLines(status teleop.Status, haveStatus bool, cmd twist.Message, haveCmd bool) []string {
	if !haveStatus {
		return []string{"", "Teleop", "Waiting..."}
	}

	lines := []string{fmt.Sprintf("Mode: %s", status.Mode)}
	if status.AutorunEnabled {
		lines = append(lines, fmt.Sprintf("Cruise: %5.2f", status.RampedForward))
	}
	if haveCmd {
		lines = append(lines,
			fmt.Sprintf("X:   %6.2f m/s", cmd.Linear.X),
			fmt.Sprintf("Yaw: %6.2f r/s", cmd.Angular.Z),
		)
	}
	lines = append(lines, fmt.Sprintf("Params v%d", status.ParamsVersion))
	return lines
}

// renderLines draws up to four lines of text on a blank panel image.
func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		y := (i + 1) * lineHeight
		if y > displayHeight {
			break
		}
		drawer.Dot = fixed.P(0, y)
		drawer.DrawString(line)
	}
	return img
}

func showSplash(dev *ssd1306.Dev) error {
	img := renderLines([]string{"", "  Teleop Joy", "  starting"})
	return dev.Draw(dev.Bounds(), img, image.Point{})
}

// RunDisplay shows the teleop mode and current command on an SSD1306.
func RunDisplay() error {
	cfg := config.Get()
	defer setupLogging(cfg).Close()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: SSD1306 initialized")

	if err := showSplash(dev); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	client, err := connectMQTT(cfg, config.ClientID(cfg.MQTTClientIDDisplay, "display"), "display")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	err = subscribe(client, cfg.TopicStatus, "display", func(payload []byte) {
		var st teleop.Status
		if err := json.Unmarshal(payload, &st); err != nil {
			log.Printf("display: status unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.status, data.haveStatus = st, true
		data.mu.Unlock()
	})
	if err != nil {
		return err
	}

	err = subscribe(client, cfg.TopicCmdVel, "display", func(payload []byte) {
		var m twist.Message
		if err := json.Unmarshal(payload, &m); err != nil {
			log.Printf("display: cmd_vel unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.cmd, data.haveCmd = m, true
		data.mu.Unlock()
	})
	if err != nil {
		return err
	}

	// Display update loop
	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		data.mu.RLock()
		lines := displayLines(data.status, data.haveStatus, data.cmd, data.haveCmd)
		data.mu.RUnlock()

		if err := dev.Draw(dev.Bounds(), renderLines(lines), image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}
