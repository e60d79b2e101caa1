// Package config provides Viper-based configuration loading for the tactica runner.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// Output is "stderr", "stdout" or a file path.
	Output string `mapstructure:"output"`
}

// DisplayConfig holds presentation timing that scripts can query.
type DisplayConfig struct {
	// AnimationBaseTimeMillis is reported to scripts by game:anim_base_time().
	AnimationBaseTimeMillis int `mapstructure:"animation_base_time_millis"`
}

// ScriptingConfig holds ability script limits.
type ScriptingConfig struct {
	// InstructionLimit caps the Lua opcodes of one script invocation.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// SimulationConfig holds tick loop settings.
type SimulationConfig struct {
	// TickInterval is the wall-clock time between simulation ticks.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// Seed fixes the dice sequence; 0 draws from the crypto source.
	Seed uint64 `mapstructure:"seed"`
}

// ContentConfig locates the authored module.
type ContentConfig struct {
	// ModuleDir is the root directory of the module content.
	ModuleDir string `mapstructure:"module_dir"`
	// Watch enables hot reload of ability scripts.
	Watch bool `mapstructure:"watch"`
}

// SaveConfig locates the save file.
type SaveConfig struct {
	// Path is the SQLite save file; empty disables saving.
	Path string `mapstructure:"path"`
}

// Enabled reports whether progress is persisted.
func (s SaveConfig) Enabled() bool { return s.Path != "" }

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Display    DisplayConfig    `mapstructure:"display"`
	Scripting  ScriptingConfig  `mapstructure:"scripting"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Content    ContentConfig    `mapstructure:"content"`
	Save       SaveConfig       `mapstructure:"save"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Display.AnimationBaseTimeMillis < 0 {
		errs = append(errs, fmt.Sprintf("display.animation_base_time_millis must be >= 0, got %d", c.Display.AnimationBaseTimeMillis))
	}
	if c.Scripting.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 0, got %d", c.Scripting.InstructionLimit))
	}
	if err := validateSimulation(c.Simulation); err != nil {
		errs = append(errs, err.Error())
	}
	if strings.TrimSpace(c.Content.ModuleDir) == "" {
		errs = append(errs, "content.module_dir must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	if s.TickInterval <= 0 {
		return fmt.Errorf("simulation.tick_interval must be positive, got %s", s.TickInterval)
	}
	if s.TickInterval < time.Millisecond {
		return errors.New("simulation.tick_interval must be at least 1ms")
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with TACTICA_ prefix
	v.SetEnvPrefix("TACTICA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only the default values.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("display.animation_base_time_millis", 250)

	v.SetDefault("scripting.instruction_limit", 1_000_000)

	v.SetDefault("simulation.tick_interval", "100ms")
	v.SetDefault("simulation.seed", 0)

	v.SetDefault("content.module_dir", "content")
	v.SetDefault("content.watch", false)

	v.SetDefault("save.path", "")
}
