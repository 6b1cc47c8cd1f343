// Package config loads burl settings from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Kernel  KernelConfig  `mapstructure:"kernel" yaml:"kernel"`
	Gesture GestureConfig `mapstructure:"gesture" yaml:"gesture"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Window  WindowConfig  `mapstructure:"window" yaml:"window"`
	Console ConsoleConfig `mapstructure:"console" yaml:"console"`
}

// KernelConfig selects and tunes the geometry backend.
type KernelConfig struct {
	Backend   string `mapstructure:"backend" yaml:"backend"` // "sdfx" or "manifold"
	MeshCells int    `mapstructure:"mesh_cells" yaml:"mesh_cells"`
	Segments  int    `mapstructure:"segments" yaml:"segments"`
}

// GestureConfig holds pointer gesture thresholds.
type GestureConfig struct {
	LongPress   time.Duration `mapstructure:"long_press" yaml:"long_press"`
	ClickWindow time.Duration `mapstructure:"click_window" yaml:"click_window"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// WindowConfig holds desktop window settings.
type WindowConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// ConsoleConfig holds Lisp console settings.
type ConsoleConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Backends understood by the kernel factory.
const (
	BackendSdfx     = "sdfx"
	BackendManifold = "manifold"
)

// Load reads configuration from file and env. If path is empty, $BURL_CONFIG
// is used, then ~/.config/burl/config.toml. A missing default file is not an
// error; a missing explicit file is. Env var overrides use prefix BURL_.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("kernel.backend", BackendSdfx)
	v.SetDefault("kernel.mesh_cells", 64)
	v.SetDefault("kernel.segments", 32)
	v.SetDefault("gesture.long_press", 600*time.Millisecond)
	v.SetDefault("gesture.click_window", 250*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("window.width", 1024)
	v.SetDefault("window.height", 768)
	v.SetDefault("console.timeout", 5*time.Second)

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv("BURL_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		home, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(home, ".config", "burl"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("BURL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	switch c.Kernel.Backend {
	case BackendSdfx, BackendManifold:
	default:
		return fmt.Errorf("config: unknown kernel backend %q", c.Kernel.Backend)
	}
	if c.Kernel.MeshCells <= 0 {
		return fmt.Errorf("config: kernel.mesh_cells must be positive, got %d", c.Kernel.MeshCells)
	}
	if c.Kernel.Segments < 3 {
		return fmt.Errorf("config: kernel.segments must be at least 3, got %d", c.Kernel.Segments)
	}
	if c.Gesture.LongPress <= 0 || c.Gesture.ClickWindow <= 0 {
		return fmt.Errorf("config: gesture thresholds must be positive")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level. Validate has already
// rejected unknown names.
func (c LogConfig) SlogLevel() slog.Level {
	l, _ := ParseLevel(c.Level)
	return l
}

// ParseLevel maps debug, info, warn/warning and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if strings.EqualFold(s, "warning") {
		s = "warn"
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log level %q: %w", s, err)
	}
	return l, nil
}
