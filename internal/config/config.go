// Package config holds the board configuration of the demo: which SPI port
// and GPIO lines the panel is wired to and how the demo drives it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Pins names the GPIO lines as known to periph's gpioreg.
type Pins struct {
	DC   string `yaml:"dc"`
	CS   string `yaml:"cs,omitempty"` // Empty when the SPI port drives CS
	RST  string `yaml:"rst"`
	Busy string `yaml:"busy"`
}

// Config is the top-level demo configuration.
type Config struct {
	// SPI is the port name passed to spireg.Open; empty selects the first
	// port available.
	SPI string `yaml:"spi"`

	Pins Pins `yaml:"pins"`

	// Mode is "blocking" or "cooperative".
	Mode string `yaml:"mode"`

	// Schedule is the cron expression the clock demo refreshes on. Its
	// activations must be at least epd154.MinRefreshInterval apart.
	Schedule string `yaml:"schedule"`

	// FontSize is the TrueType size, in points at 72 DPI, of rendered text.
	// Zero selects the built-in bitmap font.
	FontSize float64 `yaml:"font_size"`

	// LogLevel is one of "debug", "info", "warn" or "error".
	LogLevel string `yaml:"log_level"`
}

const (
	defaultMode     = "blocking"
	defaultSchedule = "*/5 * * * *"
	defaultFontSize = 32
	defaultLogLevel = "info"
)

// DefaultConfig returns the wiring of the Waveshare HAT on a Raspberry Pi.
func DefaultConfig() *Config {
	return &Config{
		SPI: "",
		Pins: Pins{
			DC:   "GPIO25",
			CS:   "",
			RST:  "GPIO17",
			Busy: "GPIO24",
		},
		Mode:     defaultMode,
		Schedule: defaultSchedule,
		FontSize: defaultFontSize,
		LogLevel: defaultLogLevel,
	}
}

// Normalize fills in missing values so that partial files still work.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Pins.DC == "" {
		c.Pins.DC = def.Pins.DC
	}
	if c.Pins.RST == "" {
		c.Pins.RST = def.Pins.RST
	}
	if c.Pins.Busy == "" {
		c.Pins.Busy = def.Pins.Busy
	}
	switch c.Mode {
	case "blocking", "cooperative":
	default:
		c.Mode = defaultMode
	}
	if c.Schedule == "" {
		c.Schedule = defaultSchedule
	}
	if c.FontSize < 0 {
		c.FontSize = 0
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		c.LogLevel = defaultLogLevel
	}
}

// Level returns the slog level for LogLevel, or Info if it is not valid.
func (c *Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// ParseLevel parses a log level name as accepted in LogLevel.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return l, errors.New("config: empty log level")
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("config: invalid log level %q", s)
	}
	return l, nil
}

// Load loads the configuration from the YAML file at path.
//
// If the file does not exist, the default configuration is written there
// with 0600 permissions and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically, through a temporary file in the same
// directory, and leaves it with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".epd154-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
