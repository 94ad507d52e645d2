package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go-musicbox/hal/rpi"
	"go-musicbox/sequencer"
)

// BoardType selects the hardware backend
type BoardType string

const (
	BoardSim BoardType = "sim"
	BoardRPi BoardType = "rpi"
)

// MIDIConfig configures the key mirror and MIDI panel controllers
type MIDIConfig struct {
	OutPort     string   `json:"outPort,omitempty"` // empty disables the key mirror
	Channel     uint8    `json:"channel"`
	BaseNote    uint8    `json:"baseNote"`
	Velocity    uint8    `json:"velocity"`
	InPort      string   `json:"inPort,omitempty"` // keyboard used as panel buttons
	ButtonNotes [4]uint8 `json:"buttonNotes"`
}

// Config is the main configuration structure
type Config struct {
	Board        BoardType `json:"board"`
	TickInterval string    `json:"tickInterval"`
	Debounce     string    `json:"debounce"`

	// Division overrides every song's division policy when set
	Division  string `json:"division,omitempty"`
	StartSong int    `json:"startSong"`

	Pins   rpi.Pins               `json:"pins"`
	MIDI   MIDIConfig             `json:"midi"`
	Status sequencer.StatusLayout `json:"status"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	cfg := &Config{
		Board:        BoardSim,
		TickInterval: "10ms",
		Debounce:     "20ms",
		MIDI: MIDIConfig{
			BaseNote:    60,
			Velocity:    100,
			ButtonNotes: [4]uint8{60, 62, 64, 65},
		},
		Status: sequencer.DefaultStatusLayout(),
	}
	cfg.Pins.Buttons = [4]string{"GPIO17", "GPIO27", "GPIO22", "GPIO23"}
	return cfg
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-musicbox"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. Missing fields keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory
func (c *Config) SaveFile(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Tick parses TickInterval
func (c *Config) Tick() (time.Duration, error) {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		return 0, fmt.Errorf("tickInterval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("tickInterval: must be positive, got %v", d)
	}
	return d, nil
}

// DebounceDelay parses Debounce
func (c *Config) DebounceDelay() (time.Duration, error) {
	d, err := time.ParseDuration(c.Debounce)
	if err != nil {
		return 0, fmt.Errorf("debounce: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("debounce: must not be negative, got %v", d)
	}
	return d, nil
}

// ApplyDivision overrides the division of every song definition when
// Division is set
func (c *Config) ApplyDivision(defs []sequencer.SongDef) error {
	if c.Division == "" {
		return nil
	}
	d, err := sequencer.ParseDivision(c.Division)
	if err != nil {
		return err
	}
	for i := range defs {
		defs[i].Policy.Division = d
	}
	return nil
}

// Validate reports every bad value
func (c *Config) Validate() error {
	var errs []error

	switch c.Board {
	case BoardSim, BoardRPi:
	default:
		errs = append(errs, fmt.Errorf("board: unknown %q (want sim or rpi)", c.Board))
	}
	if _, err := c.Tick(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.DebounceDelay(); err != nil {
		errs = append(errs, err)
	}
	if c.Division != "" {
		if _, err := sequencer.ParseDivision(c.Division); err != nil {
			errs = append(errs, fmt.Errorf("division: %w", err))
		}
	}
	if c.StartSong < 0 {
		errs = append(errs, fmt.Errorf("startSong: must not be negative, got %d", c.StartSong))
	}
	if c.MIDI.Channel > 15 {
		errs = append(errs, fmt.Errorf("midi.channel: %d out of range 0-15", c.MIDI.Channel))
	}
	if c.MIDI.BaseNote > 127 || c.MIDI.Velocity > 127 {
		errs = append(errs, fmt.Errorf("midi: baseNote and velocity must be 0-127"))
	}
	if err := c.Status.Check(); err != nil {
		errs = append(errs, fmt.Errorf("status: %w", err))
	}

	return errors.Join(errs...)
}
