package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Joystick source kinds for JOY_SOURCE.
const (
	JoySourceMock   = "mock"
	JoySourceEvdev  = "evdev"
	JoySourceSerial = "serial"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDTeleop   string
	MQTTClientIDJoy      string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string
	MQTTClientIDParamSet string

	// Topics
	TopicJoy         string
	TopicCmdVel      string
	TopicStatus      string
	TopicParamSet    string
	TopicParamResult string
	TopicParamState  string

	// Teleop node
	TeleopParamsFile string // YAML parameter file, optional
	JoyTimeoutMs     int    // 0 = no staleness watchdog

	// Joystick producer
	JoySource         string // mock, evdev, serial
	JoyDevice         string // evdev node, e.g. /dev/input/event0
	JoySerialPort     string
	JoyBaudRate       int
	JoySampleInterval int // milliseconds, mock source only
	JoyAutorepeatMs   int // republish the last sample this often, 0 = off

	// CAN output
	CANInterface string // empty = no CAN sink
	CANFrameID   uint32

	// Web Server
	WebServerPort int
	WebJWTSecret  string // empty = write actions are open

	// Display
	DisplayI2CBus         string // empty = first available bus
	DisplayUpdateInterval int    // milliseconds

	// Logging
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot modify it without locking.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: write lock for initialization, read lock for Get().
//
// External code must use InitGlobal() to set and Get() to read.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Defaults returns the configuration used for keys missing from the file.
func Defaults() *Config {
	return &Config{
		MQTTBroker: "tcp://localhost:1883",

		TopicJoy:         "teleop/joy",
		TopicCmdVel:      "teleop/cmd_vel",
		TopicStatus:      "teleop/status",
		TopicParamSet:    "teleop/param/set",
		TopicParamResult: "teleop/param/result",
		TopicParamState:  "teleop/param/state",

		JoySource:         JoySourceMock,
		JoyBaudRate:       115200,
		JoySampleInterval: 50,

		CANFrameID: 0x321,

		WebServerPort: 8080,

		DisplayUpdateInterval: 500,

		LogMaxSizeMB:  10,
		LogMaxBackups: 3,
		LogMaxAgeDays: 28,
	}
}

// Load reads the configuration file over Defaults and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_TELEOP":
		c.MQTTClientIDTeleop = value
	case "MQTT_CLIENT_ID_JOY":
		c.MQTTClientIDJoy = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "MQTT_CLIENT_ID_PARAM_SET":
		c.MQTTClientIDParamSet = value

	// Topics
	case "TOPIC_JOY":
		c.TopicJoy = value
	case "TOPIC_CMD_VEL":
		c.TopicCmdVel = value
	case "TOPIC_STATUS":
		c.TopicStatus = value
	case "TOPIC_PARAM_SET":
		c.TopicParamSet = value
	case "TOPIC_PARAM_RESULT":
		c.TopicParamResult = value
	case "TOPIC_PARAM_STATE":
		c.TopicParamState = value

	// Teleop node
	case "TELEOP_PARAMS_FILE":
		c.TeleopParamsFile = value
	case "JOY_TIMEOUT_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid JOY_TIMEOUT_MS %q: %w", value, err)
		}
		if ms < 0 {
			return fmt.Errorf("JOY_TIMEOUT_MS must be >= 0, got %d", ms)
		}
		c.JoyTimeoutMs = ms

	// Joystick producer
	case "JOY_SOURCE":
		switch value {
		case JoySourceMock, JoySourceEvdev, JoySourceSerial:
			c.JoySource = value
		default:
			return fmt.Errorf("JOY_SOURCE must be mock, evdev or serial, got %q", value)
		}
	case "JOY_DEVICE":
		c.JoyDevice = value
	case "JOY_SERIAL_PORT":
		c.JoySerialPort = value
	case "JOY_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid JOY_BAUD_RATE %q: %w", value, err)
		}
		c.JoyBaudRate = rate
	case "JOY_SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid JOY_SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.JoySampleInterval = interval
	case "JOY_AUTOREPEAT_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid JOY_AUTOREPEAT_MS %q: %w", value, err)
		}
		if ms < 0 {
			return fmt.Errorf("JOY_AUTOREPEAT_MS must be >= 0, got %d", ms)
		}
		c.JoyAutorepeatMs = ms

	// CAN output
	case "CAN_INTERFACE":
		c.CANInterface = value
	case "CAN_FRAME_ID":
		id, err := strconv.ParseUint(value, 0, 32)
		if err != nil {
			return fmt.Errorf("invalid CAN_FRAME_ID %q: %w", value, err)
		}
		if id > 0x7FF {
			return fmt.Errorf("CAN_FRAME_ID must be a standard 11-bit ID, got 0x%X", id)
		}
		c.CANFrameID = uint32(id)

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port
	case "WEB_JWT_SECRET":
		c.WebJWTSecret = value

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	// Logging
	case "LOG_FILE":
		c.LogFile = value
	case "LOG_MAX_SIZE_MB":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LOG_MAX_SIZE_MB %q: %w", value, err)
		}
		c.LogMaxSizeMB = n
	case "LOG_MAX_BACKUPS":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LOG_MAX_BACKUPS %q: %w", value, err)
		}
		c.LogMaxBackups = n
	case "LOG_MAX_AGE_DAYS":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LOG_MAX_AGE_DAYS %q: %w", value, err)
		}
		c.LogMaxAgeDays = n

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicJoy == "" || c.TopicCmdVel == "" {
		return fmt.Errorf("TOPIC_JOY and TOPIC_CMD_VEL are required")
	}
	switch c.JoySource {
	case JoySourceEvdev:
		if c.JoyDevice == "" {
			return fmt.Errorf("JOY_DEVICE is required for JOY_SOURCE=evdev")
		}
	case JoySourceSerial:
		if c.JoySerialPort == "" {
			return fmt.Errorf("JOY_SERIAL_PORT is required for JOY_SOURCE=serial")
		}
		if c.JoyBaudRate == 0 {
			return fmt.Errorf("JOY_BAUD_RATE is required for JOY_SOURCE=serial")
		}
	}
	if c.JoySampleInterval <= 0 {
		return fmt.Errorf("JOY_SAMPLE_INTERVAL must be > 0")
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be > 0")
	}
	return nil
}

// ClientID returns configured, or a unique "teleop-<role>-..." ID when
// no client ID was configured. The broker drops a session when a second
// client connects with the same ID.
func ClientID(configured, role string) string {
	if configured != "" {
		return configured
	}
	return "teleop-" + role + "-" + uuid.NewString()[:8]
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
