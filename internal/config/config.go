// Package config handles loading and saving user configuration for Web Reader.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults and bounds for the reader controls.
const (
	DefaultEndpoint = "http://localhost:8000/process_url"

	MinFontSize     = 12
	MaxFontSize     = 32
	DefaultFontSize = 20

	MinSpeechRate     = 0.5
	MaxSpeechRate     = 2.0
	DefaultSpeechRate = 1.0

	// FileName is the config file inside the config directory.
	FileName = "config.yaml"
)

// Speech engine names accepted in SpeechConfig.Engine.
const (
	EngineAuto    = "auto"
	EngineCommand = "command"
	EngineGoogle  = "google"
	EngineSilent  = "silent"
	EngineNone    = "none"
)

// Config holds all user configuration for Web Reader.
type Config struct {
	Endpoint   string        `yaml:"endpoint"`
	Timeout    time.Duration `yaml:"timeout"` // 0 means no timeout
	FontSize   int           `yaml:"font_size"`
	SpeechRate float64       `yaml:"speech_rate"`
	LogFile    string        `yaml:"log_file"`
	Speech     SpeechConfig  `yaml:"speech"`
}

// SpeechConfig selects and tunes the speech engine.
type SpeechConfig struct {
	Engine   string `yaml:"engine"`   // auto, command, google, silent, none
	Command  string `yaml:"command"`  // e.g., "espeak-ng"; empty means detect
	Voice    string `yaml:"voice"`    // engine-specific voice name
	Language string `yaml:"language"` // BCP-47 code for cloud voices
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	return &Config{
		Endpoint:   DefaultEndpoint,
		FontSize:   DefaultFontSize,
		SpeechRate: DefaultSpeechRate,
		Speech: SpeechConfig{
			Engine:   EngineAuto,
			Language: "en-US",
		},
	}
}

// Normalize fills empty fields with defaults and clamps the controls.
func (c *Config) Normalize() {
	d := Default()
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	if c.Timeout < 0 {
		c.Timeout = 0
	}
	if c.FontSize == 0 {
		c.FontSize = d.FontSize
	}
	if c.SpeechRate == 0 {
		c.SpeechRate = d.SpeechRate
	}
	if c.Speech.Engine == "" {
		c.Speech.Engine = d.Speech.Engine
	}
	if c.Speech.Language == "" {
		c.Speech.Language = d.Speech.Language
	}
	c.FontSize = ClampFontSize(c.FontSize)
	c.SpeechRate = ClampSpeechRate(c.SpeechRate)
}

// ClampFontSize limits a font size to [MinFontSize, MaxFontSize].
func ClampFontSize(size int) int {
	if size < MinFontSize {
		return MinFontSize
	}
	if size > MaxFontSize {
		return MaxFontSize
	}
	return size
}

// ClampSpeechRate limits a speech rate to [MinSpeechRate, MaxSpeechRate]
// and rounds it to the slider step of 0.1.
func ClampSpeechRate(rate float64) float64 {
	if math.IsNaN(rate) || rate < MinSpeechRate {
		return MinSpeechRate
	}
	if rate > MaxSpeechRate {
		return MaxSpeechRate
	}
	return math.Round(rate*10) / 10
}

// Load reads a configuration file. Missing fields take their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.Normalize()

	return cfg, nil
}

// LoadDir loads config.yaml from dir, falling back to defaults when the
// file does not exist.
func LoadDir(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Save writes a configuration file.
func Save(path string, cfg *Config) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// GetConfigDir returns the default configuration directory.
func GetConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "webreader"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "webreader"), nil
}

// EnsureConfigDir creates dir if it doesn't exist.
func EnsureConfigDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
