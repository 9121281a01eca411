package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"annualcal/internal/ics"
)

// Environment variables consulted by the entry points.
const (
	EnvConfigPath = "ANNUALCAL_CONFIG"
	EnvLogLevel   = "ANNUALCAL_LOG_LEVEL"
)

const (
	LineEndingCRLF = "crlf"
	LineEndingLF   = "lf"
)

// S3Config describes where `publish` uploads the rendered calendar.
type S3Config struct {
	Bucket string `yaml:"bucket" json:"bucket"`
	Key    string `yaml:"key" json:"key"`
	// Region overrides the region from the default AWS configuration chain.
	Region       string `yaml:"region,omitempty" json:"region,omitempty"`
	CacheControl string `yaml:"cache_control" json:"cache_control"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the HTTP server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address used by `serve`.
	Listen string `yaml:"listen" json:"listen"`

	// RefreshCron is a cron-style schedule string (e.g. "0 * * * *") on
	// which `serve` re-renders the cached calendar so the year window
	// slides without a restart.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Catalog is the path to an events file. Empty means the catalog
	// compiled into the binary.
	Catalog string `yaml:"catalog" json:"catalog"`

	ProductID   string `yaml:"prod_id" json:"prod_id"`
	YearsBefore int    `yaml:"years_before" json:"years_before"`
	YearsAfter  int    `yaml:"years_after" json:"years_after"`

	// LineEnding is "crlf" (default) or "lf".
	LineEnding string `yaml:"line_ending" json:"line_ending"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	S3 S3Config `yaml:"s3" json:"s3"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		RefreshCron: "0 * * * *",
		ProductID:   ics.DefaultProductID,
		YearsBefore: ics.DefaultYearsBefore,
		YearsAfter:  ics.DefaultYearsAfter,
		LineEnding:  LineEndingCRLF,
		LogLevel:    "info",
		S3: S3Config{
			Key:          "annual-events.ics",
			CacheControl: "max-age=3600",
		},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly. A zero window on both sides is
// treated as unset.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.ProductID == "" {
		c.ProductID = def.ProductID
	}
	if c.YearsBefore == 0 && c.YearsAfter == 0 {
		c.YearsBefore, c.YearsAfter = def.YearsBefore, def.YearsAfter
	}
	c.LineEnding = strings.ToLower(strings.TrimSpace(c.LineEnding))
	if c.LineEnding == "" {
		c.LineEnding = def.LineEnding
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.S3.Key == "" {
		c.S3.Key = def.S3.Key
	}
	if c.S3.CacheControl == "" {
		c.S3.CacheControl = def.S3.CacheControl
	}
}

// Validate reports configuration values that cannot be used.
func (c *Config) Validate() error {
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", c.RefreshCron, err)
	}
	if c.YearsBefore < 0 || c.YearsAfter < 0 {
		return fmt.Errorf("year window must not be negative: before=%d after=%d", c.YearsBefore, c.YearsAfter)
	}
	if c.YearsBefore+c.YearsAfter == 0 {
		return errors.New("year window is empty")
	}
	switch c.LineEnding {
	case LineEndingCRLF, LineEndingLF:
	default:
		return fmt.Errorf("unknown line ending %q (want crlf or lf)", c.LineEnding)
	}
	return nil
}

// EffectiveLogLevel returns $ANNUALCAL_LOG_LEVEL when it is set and the
// configured level otherwise.
func (c *Config) EffectiveLogLevel() string {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		return v
	}
	return c.LogLevel
}

// EmitterOptions translates the calendar settings into emitter options.
func (c *Config) EmitterOptions() []ics.Option {
	eol := ics.CRLF
	if c.LineEnding == LineEndingLF {
		eol = ics.LF
	}
	return []ics.Option{
		ics.WithProductID(c.ProductID),
		ics.WithWindow(c.YearsBefore, c.YearsAfter),
		ics.WithLineEnding(eol),
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - An empty path or a missing file yields the defaults. Nothing is
//     written; the CLI and the Lambda runtime may run on read-only
//     filesystems.
//   - Otherwise the YAML is unmarshalled, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o600)
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// over path, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".annualcal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
