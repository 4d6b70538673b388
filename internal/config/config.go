package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicEncoder string

	// Encoder Hardware
	EncoderI2CBus  string // i2creg name, "" for the first bus
	EncoderI2CAddr uint16

	// Encoder Driver
	EncoderUpdateInterval int // milliseconds
	EncoderRPMThreshold   int
	EncoderFilterSize     int // 1-10, larger values are clamped by the driver

	// Simulated encoder, used when no sensor is wired
	EncoderMock          bool
	EncoderMockRPM       float64
	EncoderMockFailEvery int // fail every Nth bus transaction, 0 disables

	// Serial telemetry link
	SerialPort     string // empty disables the link
	SerialBaudRate int

	// Timing
	ConsoleLogInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CBus         string // SSD1306 at its fixed address 0x3C
	DisplayUpdateInterval int    // milliseconds
}

// globalConfig is only reachable through InitGlobal and Get so every access
// goes through configMu.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config holding the driver defaults. Load starts from it.
func Default() *Config {
	return &Config{
		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientIDProducer:  "encoder-producer",
		MQTTClientIDConsole:   "encoder-console",
		MQTTClientIDWeb:       "encoder-web",
		MQTTClientIDDisplay:   "encoder-display",
		TopicEncoder:          "encoder/mt6701",
		EncoderI2CAddr:        0x06,
		EncoderUpdateInterval: 50,
		EncoderRPMThreshold:   1000,
		EncoderFilterSize:     10,
		EncoderMockRPM:        60,
		SerialBaudRate:        115200,
		ConsoleLogInterval:    1000,
		WebServerPort:         8080,
		DisplayUpdateInterval: 200,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
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
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_ENCODER":
		c.TopicEncoder = value

	// Encoder Hardware
	case "ENCODER_I2C_BUS":
		c.EncoderI2CBus = value
	case "ENCODER_I2C_ADDR":
		addr, err := parseI2CAddr(key, value)
		if err != nil {
			return err
		}
		c.EncoderI2CAddr = addr

	// Encoder Driver
	case "ENCODER_UPDATE_INTERVAL":
		interval, err := parsePositive(key, value)
		if err != nil {
			return err
		}
		c.EncoderUpdateInterval = interval
	case "ENCODER_RPM_THRESHOLD":
		threshold, err := parsePositive(key, value)
		if err != nil {
			return err
		}
		c.EncoderRPMThreshold = threshold
	case "ENCODER_FILTER_SIZE":
		size, err := parsePositive(key, value)
		if err != nil {
			return err
		}
		c.EncoderFilterSize = size

	// Simulated encoder
	case "ENCODER_MOCK":
		mock, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid ENCODER_MOCK %q: %w", value, err)
		}
		c.EncoderMock = mock
	case "ENCODER_MOCK_RPM":
		rpm, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ENCODER_MOCK_RPM %q: %w", value, err)
		}
		c.EncoderMockRPM = rpm
	case "ENCODER_MOCK_FAIL_EVERY":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ENCODER_MOCK_FAIL_EVERY %q: %w", value, err)
		}
		if n < 0 {
			return fmt.Errorf("ENCODER_MOCK_FAIL_EVERY must be >= 0, got %d", n)
		}
		c.EncoderMockFailEvery = n

	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		rate, err := parsePositive(key, value)
		if err != nil {
			return err
		}
		c.SerialBaudRate = rate

	// Timing
	case "CONSOLE_LOG_INTERVAL":
		interval, err := parsePositive(key, value)
		if err != nil {
			return err
		}
		c.ConsoleLogInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", port)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := parsePositive(key, value)
		if err != nil {
			return err
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// parseI2CAddr accepts decimal, 0x hex and 0b binary 7-bit addresses.
func parseI2CAddr(key, value string) (uint16, error) {
	addr, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if addr > 0x7F {
		return 0, fmt.Errorf("%s must be a 7-bit address, got 0x%X", key, addr)
	}
	return uint16(addr), nil
}

func parsePositive(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be > 0, got %d", key, n)
	}
	return n, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicEncoder == "" {
		return fmt.Errorf("TOPIC_ENCODER is required")
	}
	if c.EncoderI2CAddr == 0 && !c.EncoderMock {
		return fmt.Errorf("ENCODER_I2C_ADDR is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads the file; later calls are no-ops.
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
