// Package config provides configuration management for Faceable
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/kpatel2913/Faceable/internal/cursor"
	"github.com/kpatel2913/Faceable/internal/engine"
	"github.com/kpatel2913/Faceable/internal/gesture"
)

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration
type Config struct {
	Gesture GestureConfig `mapstructure:"gesture" yaml:"gesture"`
	Cursor  CursorConfig  `mapstructure:"cursor" yaml:"cursor"`
	Canvas  CanvasConfig  `mapstructure:"canvas" yaml:"canvas"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// GestureConfig configures the gesture classifier
type GestureConfig struct {
	SmileThreshold     float64       `mapstructure:"smile_threshold" yaml:"smile_threshold" validate:"gte=0,lte=1"`
	EyebrowThreshold   float64       `mapstructure:"eyebrow_threshold" yaml:"eyebrow_threshold" validate:"gte=0,lte=1"`
	MouthOpenThreshold float64       `mapstructure:"mouth_open_threshold" yaml:"mouth_open_threshold" validate:"gte=0,lte=1"`
	DebounceWindow     time.Duration `mapstructure:"debounce_window" yaml:"debounce_window" validate:"gte=0"`
}

// CursorConfig configures cursor smoothing and head stability
type CursorConfig struct {
	MovementMultiplier float64       `mapstructure:"movement_multiplier" yaml:"movement_multiplier" validate:"gte=0"`
	SmoothingFactor    float64       `mapstructure:"smoothing_factor" yaml:"smoothing_factor" validate:"gte=0,lte=1"`
	MovementThreshold  float64       `mapstructure:"movement_threshold" yaml:"movement_threshold" validate:"gte=0"`
	StabilityDelay     time.Duration `mapstructure:"stability_delay" yaml:"stability_delay" validate:"gte=0"`
}

// CanvasConfig configures the colour palette cycled by eyebrow raises
type CanvasConfig struct {
	Palette []string `mapstructure:"palette" yaml:"palette" validate:"dive,hexcolor"`
}

// ServerConfig configures the frame streaming server
type ServerConfig struct {
	Addr           string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	WSPath         string        `mapstructure:"ws_path" yaml:"ws_path" validate:"required,startswith=/"`
	MetricsPath    string        `mapstructure:"metrics_path" yaml:"metrics_path" validate:"required,startswith=/"`
	MaxFPS         float64       `mapstructure:"max_fps" yaml:"max_fps" validate:"gte=0"` // 0 disables the cap
	ReadLimit      int64         `mapstructure:"read_limit" yaml:"read_limit" validate:"gte=0"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"gte=0"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// LoggingConfig configures log output
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Dir        string `mapstructure:"dir" yaml:"dir"` // empty disables file logging
	Console    bool   `mapstructure:"console" yaml:"console"`
	MaxHistory int    `mapstructure:"max_history" yaml:"max_history" validate:"gte=0"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days" validate:"gte=0"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Gesture: GestureConfig{
			SmileThreshold:     gesture.DefaultSmileThreshold,
			EyebrowThreshold:   gesture.DefaultEyebrowThreshold,
			MouthOpenThreshold: gesture.DefaultMouthOpenThreshold,
			DebounceWindow:     gesture.DefaultDebounceWindow,
		},
		Cursor: CursorConfig{
			MovementMultiplier: cursor.DefaultMovementMultiplier,
			SmoothingFactor:    cursor.DefaultSmoothingFactor,
			MovementThreshold:  cursor.DefaultMovementThreshold,
			StabilityDelay:     cursor.DefaultStabilityDelay,
		},
		Canvas: CanvasConfig{
			Palette: []string{
				"#6366f1", "#8b5cf6", "#ec4899", "#f43f5e", "#f97316",
				"#eab308", "#22c59e", "#14b8a6", "#3b82f6", "#1e293b",
			},
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8787",
			WSPath:       "/ws",
			MetricsPath:  "/metrics",
			MaxFPS:       60,
			ReadLimit:    1 << 20,
			WriteTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Dir:        filepath.Join(home, ".faceable", "logs"),
			Console:    true,
			MaxHistory: 1000,
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Engine converts the tunables into the engine's configuration
func (c *Config) Engine() engine.Config {
	return engine.Config{
		Gesture: gesture.Config{
			SmileThreshold:     c.Gesture.SmileThreshold,
			EyebrowThreshold:   c.Gesture.EyebrowThreshold,
			MouthOpenThreshold: c.Gesture.MouthOpenThreshold,
			DebounceWindow:     c.Gesture.DebounceWindow,
		},
		Cursor: cursor.Config{
			MovementMultiplier: c.Cursor.MovementMultiplier,
			SmoothingFactor:    c.Cursor.SmoothingFactor,
			MovementThreshold:  c.Cursor.MovementThreshold,
			StabilityDelay:     c.Cursor.StabilityDelay,
		},
	}
}

var validate = validator.New()

// Validate checks every field against its constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// DefaultPath returns ~/.faceable/config.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".faceable", "config.yaml"), nil
}

// Loader reads a config file with viper and can watch it for changes
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader creates a loader for path; an empty path means DefaultPath
func NewLoader(path string) (*Loader, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Example: FACEABLE_GESTURE_SMILE_THRESHOLD=0.7
	v.SetEnvPrefix("FACEABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Env overrides only apply to keys viper knows about.
	if err := setDefaults(v, DefaultConfig()); err != nil {
		return nil, err
	}

	return &Loader{v: v, path: path}, nil
}

func setDefaults(v *viper.Viper, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to read defaults: %w", err)
	}
	setDefaultTree(v, "", tree)
	return nil
}

func setDefaultTree(v *viper.Viper, prefix string, tree map[string]interface{}) {
	for k, val := range tree {
		key := prefix + k
		if sub, ok := val.(map[string]interface{}); ok {
			setDefaultTree(v, key+".", sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Path returns the config file path
func (l *Loader) Path() string {
	return l.path
}

// Load reads the config file, writing the defaults first if it does not exist
func (l *Loader) Load() (*Config, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		if err := Save(DefaultConfig(), l.path); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return l.decode()
}

// Resolve loads the config file when it exists. Otherwise it returns the
// defaults with environment overrides applied and writes nothing.
func (l *Loader) Resolve() (*Config, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return l.decode()
	}
	return l.Load()
}

func (l *Loader) decode() (*Config, error) {
	cfg := DefaultConfig()
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch calls onChange with the re-read configuration whenever the file is
// written. A config that fails to decode or validate is passed as an error
// and the previous one should be kept.
func (l *Loader) Watch(onChange func(*Config, error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(l.decode())
	})
	l.v.WatchConfig()
}

// Load reads the configuration at path (DefaultPath when empty)
func Load(path string) (*Config, error) {
	l, err := NewLoader(path)
	if err != nil {
		return nil, err
	}
	return l.Load()
}

// Save writes the configuration to path as YAML
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Marshal renders the configuration as YAML
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
