// Package config loads gomeasure settings from defaults, an optional config
// file, GOMEASURE_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. GOMEASURE_RELAY_LISTEN
const EnvPrefix = "GOMEASURE"

// Config is the complete configuration
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Relay  RelayConfig  `mapstructure:"relay"`
	Client ClientConfig `mapstructure:"client"`
	View   ViewConfig   `mapstructure:"view"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RelayConfig tunes the relay server
type RelayConfig struct {
	Listen            string        `mapstructure:"listen"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
	SendBuffer        int           `mapstructure:"send_buffer"`
	MessagesPerSecond float64       `mapstructure:"messages_per_second"`
	Burst             int           `mapstructure:"burst"`
	PongWait          time.Duration `mapstructure:"pong_wait"`
}

// ClientConfig says which relay and room a client joins
type ClientConfig struct {
	URL  string `mapstructure:"url"`
	Room string `mapstructure:"room"`
}

// ViewConfig configures the viewer window
type ViewConfig struct {
	Width       int     `mapstructure:"width"`
	Height      int     `mapstructure:"height"`
	Model       string  `mapstructure:"model"`
	GroundPlane bool    `mapstructure:"ground_plane"`
	HoverRadius float64 `mapstructure:"hover_radius"`
	Colors      Colors  `mapstructure:"colors"`
}

// Colors are hex strings of the form #rrggbb or #rrggbbaa
type Colors struct {
	Line    string `mapstructure:"line"`
	Preview string `mapstructure:"preview"`
	Hover   string `mapstructure:"hover"`
	Delete  string `mapstructure:"delete"`
}

// New returns a viper instance with defaults and environment binding set up
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the default of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("relay.listen", ":8080")
	v.SetDefault("relay.max_message_size", 64*1024)
	v.SetDefault("relay.send_buffer", 256)
	v.SetDefault("relay.messages_per_second", 50.0)
	v.SetDefault("relay.burst", 100)
	v.SetDefault("relay.pong_wait", 60*time.Second)

	v.SetDefault("client.url", "ws://localhost:8080/ws")
	v.SetDefault("client.room", "default")

	v.SetDefault("view.width", 1280)
	v.SetDefault("view.height", 800)
	v.SetDefault("view.model", "")
	v.SetDefault("view.ground_plane", true)
	v.SetDefault("view.hover_radius", 10.0)
	v.SetDefault("view.colors.line", "#f5c542")
	v.SetDefault("view.colors.preview", "#8ab4f8")
	v.SetDefault("view.colors.hover", "#4caf50")
	v.SetDefault("view.colors.delete", "#e53935")
}

// Load reads file (when not empty) into v and decodes the result. Without
// a file, ./gomeasure.{yaml,toml,json} and $HOME/.config/gomeasure.* are tried.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("gomeasure")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return Decode(v)
}

// Decode unmarshals and validates the current settings of v
func Decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks value ranges and color syntax
func (c Config) Validate() error {
	switch {
	case c.View.HoverRadius <= 0:
		return fmt.Errorf("view.hover_radius must be positive, got %v", c.View.HoverRadius)
	case c.View.Width <= 0 || c.View.Height <= 0:
		return fmt.Errorf("view size must be positive, got %dx%d", c.View.Width, c.View.Height)
	case c.Relay.Burst < 0 || c.Relay.MessagesPerSecond < 0:
		return errors.New("relay rate limits must not be negative")
	}
	if _, err := c.View.Colors.Palette(); err != nil {
		return err
	}
	return nil
}
