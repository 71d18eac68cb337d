package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the medalarm subcommands.
type Config struct {
	// ListenAddress is the gRPC address the daemon serves and clients dial.
	ListenAddress string `yaml:"listen_addr"`
	// OwnerID is the user (or dependent) whose schedules the daemon watches.
	OwnerID string `yaml:"owner_id"`
	// Database selects the schedule store and dose ledger backend.
	Database Database `yaml:"database"`
	// PollInterval is the period of the alarm poller ticks.
	PollInterval time.Duration `yaml:"poll_interval"`
	// SettleDelay is how long an acknowledged alarm stays settling before idle.
	SettleDelay time.Duration `yaml:"settle_delay"`
	// SoundFile is the WAV file looped while an alarm rings.
	SoundFile string `yaml:"sound_file"`
	// Volume is the playback volume in the range (0, 1].
	Volume float64 `yaml:"volume"`
	// CalendarFile is the iCalendar file the reminder triggers are written to.
	CalendarFile string `yaml:"calendar_file"`
	// StateFile is the JSON snapshot of the alarm state.
	StateFile string `yaml:"state_file"`
	// PIDFile guards against a second daemon on the host.
	PIDFile string `yaml:"pid_file"`
	// MetricsAddress enables the Prometheus endpoint when not empty.
	MetricsAddress string `yaml:"metrics_addr"`
	// CatalogCacheSize bounds the medication catalog LRU cache.
	CatalogCacheSize int `yaml:"catalog_cache_size"`
	// Timeout is the duration for RPC calls and store operations.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Database configures the database/sql backend.
type Database struct {
	// Driver is "sqlite" or "pgx".
	Driver string `yaml:"driver"`
	// DSN is the driver-specific data source name.
	DSN string `yaml:"dsn"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "medalarm-settings.yaml"

	// DefaultListenAddress is the default gRPC address.
	DefaultListenAddress = "127.0.0.1:50061"

	// DefaultDSN is the default SQLite database file.
	DefaultDSN = "medalarm.db"

	// DefaultStateFilename is the default filename for the alarm snapshot.
	DefaultStateFilename = "medalarm-state.json"

	// DefaultCalendarFilename is the default iCalendar trigger file.
	DefaultCalendarFilename = "medalarm-reminders.ics"

	// DefaultPIDFilename is the default daemon pid file.
	DefaultPIDFilename = "medalarm.pid"

	// DefaultPollInterval is the default poller period.
	DefaultPollInterval = 30 * time.Second

	// DefaultSettleDelay is the default settle delay after acknowledgment.
	DefaultSettleDelay = 500 * time.Millisecond

	// DefaultVolume plays the alarm at maximum volume.
	DefaultVolume = 1.0

	// DefaultCatalogCacheSize is the default number of cached medications.
	DefaultCatalogCacheSize = 256

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for written files.
	DefaultFilePermissions = 0o600

	// DriverSQLite selects modernc.org/sqlite.
	DriverSQLite = "sqlite"

	// DriverPGX selects PostgreSQL through pgx.
	DriverPGX = "pgx"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errOwnerRequired is returned when no owner is configured.
	errOwnerRequired = errors.New("owner id must be provided")
	// errUnknownDriver is returned for an unsupported database driver.
	errUnknownDriver = errors.New("unknown database driver")
	// errVolumeRange is returned when volume is outside (0, 1].
	errVolumeRange = errors.New("volume must be in (0, 1]")
	// errPollTooSlow is returned when ticks are too sparse to hit every minute.
	errPollTooSlow = errors.New("poll interval must be shorter than a minute")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults for optional ones.
//
//nolint:cyclop // A flat list of defaults reads better than helpers.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.OwnerID == "" {
		return errOwnerRequired
	}

	if settings.ListenAddress == "" {
		settings.ListenAddress = DefaultListenAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	switch settings.Database.Driver {
	case "":
		settings.Database.Driver = DriverSQLite
	case DriverSQLite, DriverPGX:
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, settings.Database.Driver)
	}

	if settings.Database.DSN == "" {
		settings.Database.DSN = DefaultDSN
	}

	if settings.PollInterval <= 0 {
		settings.PollInterval = DefaultPollInterval
	}

	if settings.PollInterval >= time.Minute {
		return errPollTooSlow
	}

	if settings.SettleDelay <= 0 {
		settings.SettleDelay = DefaultSettleDelay
	}

	if settings.Volume == 0 {
		settings.Volume = DefaultVolume
	}

	if settings.Volume < 0 || settings.Volume > 1 {
		return errVolumeRange
	}

	if settings.StateFile == "" {
		settings.StateFile = DefaultStateFilename
	}

	if settings.CalendarFile == "" {
		settings.CalendarFile = DefaultCalendarFilename
	}

	if settings.PIDFile == "" {
		settings.PIDFile = DefaultPIDFilename
	}

	if settings.CatalogCacheSize <= 0 {
		settings.CatalogCacheSize = DefaultCatalogCacheSize
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	return nil
}
