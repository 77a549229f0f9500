package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sowilo/internal/scheduling"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	SQLite      SQLiteConfig      `yaml:"sqlite"`
	Auth        AuthConfig        `yaml:"auth"`
	Preferences PreferencesConfig `yaml:"preferences"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Preferences.Validate(); err != nil {
		return err
	}
	return c.Scheduler.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// PreferencesConfig locates the scheduling preferences file.
type PreferencesConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the preferences configuration.
func (c *PreferencesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SchedulerConfig tunes the scheduling engine and the backlog sweep.
type SchedulerConfig struct {
	// Timezone names the IANA zone days and hours are computed in. Empty means local time.
	Timezone          string  `yaml:"timezone"`
	SearchDays        int     `yaml:"search_days"`
	MaxSuggestions    int     `yaml:"max_suggestions"`
	PreferredHour     int     `yaml:"preferred_hour"`
	DurationWeight    float64 `yaml:"duration_weight"`
	RespectQuietHours bool    `yaml:"respect_quiet_hours"`
	// SweepCron schedules the backlog sweep; empty disables it.
	SweepCron    string        `yaml:"sweep_cron"`
	SweepTimeout time.Duration `yaml:"sweep_timeout"`
}

// Validate validates the scheduler configuration.
func (c *SchedulerConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.SearchDays, validation.Required, validation.Min(1), validation.Max(90)),
		validation.Field(&c.MaxSuggestions, validation.Required, validation.Min(1), validation.Max(20)),
		validation.Field(&c.PreferredHour, validation.Min(0), validation.Max(23)),
		validation.Field(&c.DurationWeight, validation.Min(0.0)),
		validation.Field(&c.SweepTimeout, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c *SchedulerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// EngineConfig converts the section into scheduling engine tuning.
func (c *SchedulerConfig) EngineConfig() scheduling.Config {
	return scheduling.Config{
		SearchWindow:   time.Duration(c.SearchDays) * 24 * time.Hour,
		MaxSuggestions: c.MaxSuggestions,
		Policy: scheduling.RankingPolicy{
			PreferredHour:  c.PreferredHour,
			DurationWeight: c.DurationWeight,
		},
		RespectQuietHours: c.RespectQuietHours,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	def := scheduling.DefaultConfig()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./sowilo.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Preferences: PreferencesConfig{
			Path:  "./preferences.yaml",
			Watch: true,
		},
		Scheduler: SchedulerConfig{
			SearchDays:     7,
			MaxSuggestions: def.MaxSuggestions,
			PreferredHour:  def.Policy.PreferredHour,
			DurationWeight: def.Policy.DurationWeight,
			SweepTimeout:   time.Minute,
		},
	}
}
