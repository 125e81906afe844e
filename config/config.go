package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"
)

type Config struct {
	MediaServer MediaServerConfig
	Bridge      BridgeConfig
	Pushover    PushoverConfig
}

type MediaServerConfig struct {
	Host         string `env:"JRIVER_HOST"`
	Port         int    `env:"JRIVER_PORT"`
	SSL          bool   `env:"JRIVER_SSL"`
	Username     string `env:"JRIVER_USERNAME"`
	Password     string `env:"JRIVER_PASSWORD"`
	AccessKey    string `env:"JRIVER_ACCESS_KEY"`
	MACAddresses string `env:"JRIVER_MAC_ADDRESSES"`
	ExtraFields  string `env:"JRIVER_EXTRA_FIELDS"`
	BrowsePaths  string `env:"JRIVER_BROWSE_PATHS"`
	TimeoutSecs  int    `env:"JRIVER_TIMEOUT_SECS"`
}

type BridgeConfig struct {
	BindAddress string `env:"BIND_ADDRESS"`
	DbPath      string `env:"DB_PATH"`
	LogLevel    string `env:"LOG_LEVEL"`
}

type PushoverConfig struct {
	Recipient string `env:"PUSHOVER_RECIPIENT"`
	Token     string `env:"PUSHOVER_TOKEN"`
}

// defaultBrowsePaths covers a stock library layout, used when the
// server is too old to serve its own rules and none are configured.
var defaultBrowsePaths = []string{
	"Audio,Artist|Album Artist (auto),Album",
	"Audio,Album|Album",
	"Audio,Recent|Album",
	"Audio,Genre|Genre,Album Artist (auto),Album",
	"Audio,Composer|Composer,Album",
	"Audio,Podcast",
	"Video,Movies",
	"Video,Shows|Series,Season",
	"Video,Music|Artist,Album",
}

func Load() (Config, error) {
	cfg := Config{}
	envFeeder := feeder.Env{}
	if err := config.New().AddFeeder(envFeeder).AddStruct(&cfg).Feed(); err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.MediaServer.Host == "" && cfg.MediaServer.AccessKey == "" {
		return cfg, fmt.Errorf("either JRIVER_HOST or JRIVER_ACCESS_KEY must be set")
	}
	if cfg.MediaServer.Port == 0 {
		cfg.MediaServer.Port = 52199
	}
	if cfg.MediaServer.TimeoutSecs == 0 {
		cfg.MediaServer.TimeoutSecs = 5
	}
	if cfg.Bridge.BindAddress == "" {
		cfg.Bridge.BindAddress = ":8080"
	}
	if cfg.Bridge.DbPath == "" {
		cfg.Bridge.DbPath = "jriver-bridge.db"
	}
	return cfg, nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.MediaServer.TimeoutSecs) * time.Second
}

// ExtraFieldList splits the configured extra library fields.
func (c *Config) ExtraFieldList() []string {
	return splitCSV(c.MediaServer.ExtraFields)
}

// MACAddressList splits the configured wake on LAN targets.
func (c *Config) MACAddressList() []string {
	return splitCSV(c.MediaServer.MACAddresses)
}

// BrowsePathList returns one browse rule definition per entry, falling
// back to a stock library layout when nothing is configured. Entries
// are separated by semicolons since rule definitions contain commas.
func (c *Config) BrowsePathList() []string {
	if strings.TrimSpace(c.MediaServer.BrowsePaths) == "" {
		return defaultBrowsePaths
	}
	var paths []string
	for _, chunk := range strings.Split(c.MediaServer.BrowsePaths, ";") {
		if trimmed := strings.TrimSpace(chunk); trimmed != "" {
			paths = append(paths, trimmed)
		}
	}
	return paths
}

func splitCSV(s string) []string {
	var out []string
	for _, chunk := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(chunk); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c *Config) GetLogLevel() slog.Leveler {
	logLevel := strings.ToLower(c.Bridge.LogLevel)
	if logLevel == "error" {
		return slog.LevelError
	}
	if logLevel == "warning" {
		return slog.LevelWarn
	}
	if logLevel == "info" {
		return slog.LevelInfo
	}
	if logLevel == "debug" {
		return slog.LevelDebug
	}
	// default to info if unknown
	slog.With(slog.String("log_level", logLevel)).Info("Received invalid log level. Defaulting to INFO.")
	return slog.LevelInfo
}
