package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"coursecal/internal/calendar"
	appLog "coursecal/internal/log"
)

// FeedKind says which record shape a feed's VEVENTs become.
type FeedKind string

const (
	FeedClass FeedKind = "class"
	FeedExam  FeedKind = "exam"
)

// FeedConfig describes a single ICS subscription source.
type FeedConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in the UI.
	Name string `yaml:"name" json:"name"`
	// Kind is "class" or "exam".
	Kind FeedKind `yaml:"kind" json:"kind"`
	// Course is the course title assigned to every record of the feed.
	// If empty, the VEVENT CATEGORIES value (or Name) is used.
	Course string `yaml:"course" json:"course"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone in which naive class/exam wall-clock
	// times are interpreted (e.g. "Europe/Rome").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday is the first grid column.
	// Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic feed refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays bounds recurring class expansion on each side of today.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// EditionStart / EditionEnd are the "HH:MM" class hours used when a
	// session carries no time of its own.
	EditionStart string `yaml:"edition_start" json:"edition_start"`
	EditionEnd   string `yaml:"edition_end" json:"edition_end"`

	// RecordsFile is an optional YAML catalog of class sessions and exams.
	RecordsFile string `yaml:"records_file" json:"records_file"`

	// CacheDir holds per-feed ICS bodies and HTTP cache metadata.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// SnapshotPath is where -snapshot writes the month PNG.
	SnapshotPath string `yaml:"snapshot_path" json:"snapshot_path"`

	// Feeds is the list of subscribed ICS sources.
	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health and /metrics.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen       = "127.0.0.1:8080"
	defaultTimezone     = "Europe/Rome"
	defaultWeekStart    = "monday"
	defaultRefreshCron  = "*/15 * * * *"
	defaultHorizonDays  = 180
	defaultLogLevel     = "info"
	defaultEditionStart = "08:00"
	defaultEditionEnd   = "10:00"
	defaultCacheDir     = "/var/lib/coursecal/ics-cache"
	defaultSnapshotPath = "/var/lib/coursecal/month.png"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       defaultListen,
		Timezone:     defaultTimezone,
		WeekStart:    defaultWeekStart,
		RefreshCron:  defaultRefreshCron,
		HorizonDays:  defaultHorizonDays,
		LogLevel:     defaultLogLevel,
		EditionStart: defaultEditionStart,
		EditionEnd:   defaultEditionEnd,
		CacheDir:     defaultCacheDir,
		SnapshotPath: defaultSnapshotPath,
		Feeds:        []FeedConfig{},
		BasicAuth:    nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	// WeekStart default & validation.
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	case "":
		c.WeekStart = defaultWeekStart
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		appLog.Warn("config: unknown week_start, using monday", "week_start", c.WeekStart)
		c.WeekStart = defaultWeekStart
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.EditionStart == "" {
		c.EditionStart = defaultEditionStart
	}
	if c.EditionEnd == "" {
		c.EditionEnd = defaultEditionEnd
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.SnapshotPath == "" {
		c.SnapshotPath = defaultSnapshotPath
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	for i := range c.Feeds {
		f := &c.Feeds[i]
		if f.Kind == "" {
			f.Kind = FeedClass
		}
		if f.ID == "" {
			if f.Name != "" {
				f.ID = f.Name
			} else {
				f.ID = f.URL
			}
		}
	}
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	if _, err := calendar.ParseClock(c.EditionStart); err != nil {
		return fmt.Errorf("%w: edition_start: %w", ErrInvalidConfig, err)
	}
	if _, err := calendar.ParseClock(c.EditionEnd); err != nil {
		return fmt.Errorf("%w: edition_end: %w", ErrInvalidConfig, err)
	}
	for _, f := range c.Feeds {
		if f.URL == "" {
			return fmt.Errorf("%w: feed %q has no url", ErrInvalidConfig, f.ID)
		}
		if f.Kind != FeedClass && f.Kind != FeedExam {
			return fmt.Errorf("%w: feed %q has unknown kind %q", ErrInvalidConfig, f.ID, f.Kind)
		}
	}
	return nil
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// Week returns the parsed week start.
func (c *Config) Week() calendar.WeekStart {
	ws, err := calendar.ParseWeekStart(c.WeekStart)
	if err != nil {
		return calendar.WeekStartMonday
	}
	return ws
}

// NormalizeOptions builds the normalizer settings from the edition hours.
func (c *Config) NormalizeOptions() calendar.NormalizeOptions {
	opts := calendar.NormalizeOptions{Location: c.Location()}
	if clk, err := calendar.ParseClock(c.EditionStart); err == nil {
		opts.EditionStart = &clk
	}
	if clk, err := calendar.ParseClock(c.EditionEnd); err == nil {
		opts.EditionEnd = &clk
	}
	return opts
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults and validate
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
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
		return ErrEmptyPath
	}
	if cfg == nil {
		return ErrNilConfig
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

	tmp, err := os.CreateTemp(dir, ".coursecal-config-*.tmp")
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
