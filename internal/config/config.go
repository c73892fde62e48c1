// Package config loads the station agent's settings from environment
// variables, applying defaults where unset and validating the rest.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all agent settings.
type Config struct {
	StationID       string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Coordination server boundary.
	ServerBaseURL string
	ServerTimeout time.Duration

	// Serial channel to the GSM modem.
	SerialDevice string
	SerialBaud   int

	// Modem session timings.
	ModemCommandTimeout      time.Duration
	ModemSIMReadyTimeout     time.Duration
	ModemRegistrationTimeout time.Duration
	ModemRegistrationPoll    time.Duration
	ModemPromptTimeout       time.Duration
	ModemSendSettle          time.Duration

	// Control loop schedules.
	SampleInterval           time.Duration
	AlertCooldown            time.Duration
	BroadcastSpacing         time.Duration
	TelemetryInterval        time.Duration
	CommandPollInterval      time.Duration
	RecipientRefreshInterval time.Duration

	// Recipient directory.
	MaxRecipients     int
	FallbackRecipient string

	// Sensors.
	SensorSource       string // "gpio" or "replay"
	SensorGPIOPaths    [3]string
	SensorActiveLow    bool
	SensorReplayScript string

	// Optional fleet event stream.
	EventsEnabled bool
	KafkaBrokers  []string
	KafkaTopic    string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	cfg := &Config{
		StationID:          envOrDefault("STATION_ID", "AGOS-SUB002"),
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ServerBaseURL:      strings.TrimRight(envOrDefault("SERVER_BASE_URL", "http://localhost:8000"), "/"),
		SerialDevice:       envOrDefault("SERIAL_DEVICE", "/dev/ttyUSB0"),
		FallbackRecipient:  envOrDefault("FALLBACK_RECIPIENT", "+639171234567"),
		SensorSource:       strings.ToLower(envOrDefault("SENSOR_SOURCE", "gpio")),
		SensorReplayScript: envOrDefault("SENSOR_REPLAY_SCRIPT", "000"),
		KafkaBrokers:       splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:         envOrDefault("KAFKA_TOPIC", "agos-station-events"),
	}

	var err error
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ServerTimeout, err = durationEnv("SERVER_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SerialBaud, err = intEnv("SERIAL_BAUD", 9600); err != nil {
		return nil, err
	}
	if cfg.ModemCommandTimeout, err = durationEnv("MODEM_COMMAND_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.ModemSIMReadyTimeout, err = durationEnv("MODEM_SIM_READY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ModemRegistrationTimeout, err = durationEnv("MODEM_REGISTRATION_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ModemRegistrationPoll, err = durationEnv("MODEM_REGISTRATION_POLL", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.ModemPromptTimeout, err = durationEnv("MODEM_PROMPT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ModemSendSettle, err = durationEnv("MODEM_SEND_SETTLE", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SampleInterval, err = durationEnv("SAMPLE_INTERVAL", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.AlertCooldown, err = durationEnv("ALERT_COOLDOWN", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.BroadcastSpacing, err = durationEnv("BROADCAST_SPACING", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.TelemetryInterval, err = durationEnv("TELEMETRY_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.CommandPollInterval, err = durationEnv("COMMAND_POLL_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.RecipientRefreshInterval, err = durationEnv("RECIPIENT_REFRESH_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MaxRecipients, err = intEnv("MAX_RECIPIENTS", 20); err != nil {
		return nil, err
	}
	if cfg.SensorActiveLow, err = boolEnv("SENSOR_ACTIVE_LOW", false); err != nil {
		return nil, err
	}
	if cfg.EventsEnabled, err = boolEnv("EVENTS_ENABLED", false); err != nil {
		return nil, err
	}

	paths := splitList(envOrDefault("SENSOR_GPIO_PATHS",
		"/sys/class/gpio/gpio17/value,/sys/class/gpio/gpio27/value,/sys/class/gpio/gpio22/value"))
	if len(paths) != 3 {
		return nil, errors.New("SENSOR_GPIO_PATHS must list exactly 3 value files, low to high")
	}
	copy(cfg.SensorGPIOPaths[:], paths)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.StationID == "" {
		return errors.New("STATION_ID must not be empty")
	}
	if cfg.ServerBaseURL == "" {
		return errors.New("SERVER_BASE_URL is required")
	}
	if cfg.SerialDevice == "" {
		return errors.New("SERIAL_DEVICE is required")
	}
	if cfg.SerialBaud <= 0 {
		return errors.New("SERIAL_BAUD must be positive")
	}
	if cfg.FallbackRecipient == "" {
		return errors.New("FALLBACK_RECIPIENT must not be empty")
	}
	if cfg.MaxRecipients <= 0 {
		return errors.New("MAX_RECIPIENTS must be positive")
	}
	if cfg.SensorSource != "gpio" && cfg.SensorSource != "replay" {
		return fmt.Errorf("SENSOR_SOURCE must be gpio or replay, got %q", cfg.SensorSource)
	}
	if cfg.EventsEnabled && len(cfg.KafkaBrokers) == 0 {
		return errors.New("EVENTS_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.EventsEnabled && cfg.KafkaTopic == "" {
		return errors.New("EVENTS_ENABLED is true but KAFKA_TOPIC is empty")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, v)
	}
	return b, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
