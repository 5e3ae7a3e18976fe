// Package config loads daemon configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/sweeney/dryeye-sensor/internal/logic"
)

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Broker        string
	ClientID      string
	Username      string
	Password      string
	LandmarkTopic string
}

// RedisConfig holds the assessment stream settings. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	MaxLen   int64
}

// ButtonConfig holds the start/stop push button settings. Pin < 0 disables it.
type ButtonConfig struct {
	Pin      int
	Debounce time.Duration
	Poll     time.Duration
}

// Config is the full daemon configuration.
type Config struct {
	MQTT   MQTTConfig
	Redis  RedisConfig
	Button ButtonConfig

	HTTPAddr string

	BlinkThreshold  float64
	MinConsecFrames int
	SessionSeconds  int
	Heartbeat       time.Duration
	AutoStart       bool

	LogLevel  string
	LogFormat string
}

// Load reads the given .env files (default ".env", missing files are ignored)
// and then the environment. Existing environment variables win over .env values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{
		MQTT: MQTTConfig{
			Broker:        getEnv("DRYEYE_MQTT_BROKER", "tcp://localhost:1883"),
			ClientID:      getEnv("DRYEYE_MQTT_CLIENT_ID", "dryeye-sensor"),
			Username:      getEnv("DRYEYE_MQTT_USERNAME", ""),
			Password:      getEnv("DRYEYE_MQTT_PASSWORD", ""),
			LandmarkTopic: getEnv("DRYEYE_LANDMARK_TOPIC", "health/dryeye/landmarks"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("DRYEYE_REDIS_ADDR", ""),
			Password: getEnv("DRYEYE_REDIS_PASSWORD", ""),
			Stream:   getEnv("DRYEYE_REDIS_STREAM", "dryeye:assessments"),
		},
		HTTPAddr:  getEnv("DRYEYE_HTTP_ADDR", ":8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.Redis.DB, err = getEnvInt("DRYEYE_REDIS_DB", 0); err != nil {
		return nil, err
	}
	maxLen, err := getEnvInt("DRYEYE_REDIS_MAXLEN", 1000)
	if err != nil {
		return nil, err
	}
	cfg.Redis.MaxLen = int64(maxLen)
	if cfg.BlinkThreshold, err = getEnvFloat("DRYEYE_BLINK_THRESHOLD", logic.DefaultBlinkThreshold); err != nil {
		return nil, err
	}
	if cfg.MinConsecFrames, err = getEnvInt("DRYEYE_MIN_CONSEC_FRAMES", logic.DefaultMinConsecFrames); err != nil {
		return nil, err
	}
	if cfg.SessionSeconds, err = getEnvInt("DRYEYE_SESSION_SECONDS", logic.DefaultSessionSeconds); err != nil {
		return nil, err
	}
	if cfg.Heartbeat, err = getEnvDuration("DRYEYE_HEARTBEAT", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.AutoStart, err = getEnvBool("DRYEYE_AUTO_START", false); err != nil {
		return nil, err
	}
	if cfg.Button.Pin, err = getEnvInt("DRYEYE_BUTTON_PIN", -1); err != nil {
		return nil, err
	}
	if cfg.Button.Debounce, err = getEnvDuration("DRYEYE_BUTTON_DEBOUNCE", 50*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.Button.Poll, err = getEnvDuration("DRYEYE_BUTTON_POLL", 20*time.Millisecond); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if !(c.BlinkThreshold > 0 && c.BlinkThreshold < 1) {
		return fmt.Errorf("blink threshold must be in (0,1), got %v", c.BlinkThreshold)
	}
	if c.MinConsecFrames < 1 {
		return fmt.Errorf("min consecutive frames must be >= 1, got %d", c.MinConsecFrames)
	}
	if c.SessionSeconds <= 0 {
		return fmt.Errorf("session seconds must be > 0, got %d", c.SessionSeconds)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must be >= 0, got %v", c.Heartbeat)
	}
	if c.MQTT.Broker == "" {
		return errors.New("mqtt broker is required")
	}
	if c.MQTT.LandmarkTopic == "" {
		return errors.New("landmark topic is required")
	}
	if c.Redis.Addr != "" && c.Redis.MaxLen <= 0 {
		return fmt.Errorf("redis maxlen must be > 0, got %d", c.Redis.MaxLen)
	}
	if c.Button.Pin >= 0 && (c.Button.Poll <= 0 || c.Button.Debounce < 0) {
		return fmt.Errorf("button poll must be > 0 and debounce >= 0, got poll=%v debounce=%v", c.Button.Poll, c.Button.Debounce)
	}
	return nil
}

// MonitorConfig converts the tuning values for the engine.
func (c *Config) MonitorConfig() logic.MonitorConfig {
	return logic.MonitorConfig{
		BlinkThreshold:  c.BlinkThreshold,
		MinConsecFrames: c.MinConsecFrames,
		Thresholds:      logic.DefaultThresholds(),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
