package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Provider       ProviderConfig `yaml:"provider"`
	Store          StoreConfig    `yaml:"store"`
	HTTP           HTTPConfig     `yaml:"http"`
	MQTT           MQTTConfig     `yaml:"mqtt"`
	Schedule       ScheduleConfig `yaml:"schedule"`
	Inbox          InboxConfig    `yaml:"inbox"`
	Push           PushConfig     `yaml:"push"`
	LogLevel       string         `yaml:"log_level"`
	LiveWindow     time.Duration  `yaml:"live_window"`
	UnansweredWarn time.Duration  `yaml:"unanswered_warn"`
}

// ProviderConfig points at the telephony provider's export API. Polling is
// disabled when Host is empty.
type ProviderConfig struct {
	Host     string        `yaml:"host"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// ScheduleConfig holds cron specs for the provider fetch jobs.
type ScheduleConfig struct {
	CallData     string `yaml:"call_data"`
	CustomerData string `yaml:"customer_data"`
	Contacts     string `yaml:"contacts"`
}

// InboxConfig names a directory watched for dropped XML exports.
type InboxConfig struct {
	Dir string `yaml:"dir"`
}

type PushConfig struct {
	Token string `yaml:"token"`
}

// PollingEnabled reports whether the provider API should be polled.
func (c *Config) PollingEnabled() bool {
	return c.Provider.Host != ""
}

// SlogLevel maps LogLevel to a slog level. Unknown names mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaults() *Config {
	return &Config{
		Provider: ProviderConfig{Timeout: 30 * time.Second},
		Store:    StoreConfig{Path: "callboard.db"},
		HTTP:     HTTPConfig{Listen: ":8080"},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "callboard",
			TopicPrefix: "callboard",
		},
		Schedule: ScheduleConfig{
			CallData:     "@every 2m",
			CustomerData: "@every 7h",
			Contacts:     "@every 7h",
		},
		LogLevel:       "info",
		LiveWindow:     8 * time.Hour,
		UnansweredWarn: 30 * time.Second,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.PollingEnabled() {
		if c.Provider.Username == "" {
			return fmt.Errorf("provider.username is required")
		}
		if c.Provider.Password == "" {
			return fmt.Errorf("provider.password is required")
		}
		if c.Provider.Timeout <= 0 {
			return fmt.Errorf("provider.timeout must be positive, got %s", c.Provider.Timeout)
		}
		specs := []struct{ name, spec string }{
			{"schedule.call_data", c.Schedule.CallData},
			{"schedule.customer_data", c.Schedule.CustomerData},
			{"schedule.contacts", c.Schedule.Contacts},
		}
		for _, s := range specs {
			if _, err := cron.ParseStandard(s.spec); err != nil {
				return fmt.Errorf("%s is not a valid schedule: %q", s.name, s.spec)
			}
		}
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.HTTP.Listen == "" {
		return fmt.Errorf("http.listen is required")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required")
		}
		if c.MQTT.ClientID == "" {
			return fmt.Errorf("mqtt.client_id is required")
		}
		if c.MQTT.TopicPrefix == "" {
			return fmt.Errorf("mqtt.topic_prefix is required")
		}
	}
	if c.LiveWindow <= 0 {
		return fmt.Errorf("live_window must be positive, got %s", c.LiveWindow)
	}
	if c.UnansweredWarn < 0 {
		return fmt.Errorf("unanswered_warn must not be negative, got %s", c.UnansweredWarn)
	}
	return nil
}
