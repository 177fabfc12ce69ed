package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variables that override values from the config file.
const (
	EnvConfigPath    = "REGSHELL_CONFIG"
	EnvDBUser        = "REGSHELL_DB_USER"
	EnvDBPassword    = "REGSHELL_DB_PASSWORD"
	EnvDBAlias       = "REGSHELL_DB_ALIAS"
	EnvSQLPlus       = "REGSHELL_SQLPLUS"
	EnvAuditDB       = "REGSHELL_AUDIT_DB"
	EnvPort          = "PORT"
	EnvProcTimeout   = "REGSHELL_PROCEDURE_TIMEOUT"
	EnvLogFile       = "REGSHELL_LOG_FILE"
	EnvHealthSched   = "REGSHELL_HEALTH_SCHEDULE"
	EnvMaxConcurrent = "REGSHELL_MAX_CONCURRENT"
	EnvLogCompress   = "REGSHELL_LOG_COMPRESS"
)

const (
	DefaultBinary         = "sqlplus"
	DefaultPackage        = "reg_pkg"
	DefaultPort           = 8000
	DefaultProcTimeout    = 60 * time.Second
	DefaultMaxConcurrent  = 4
	DefaultHealthSchedule = "@every 5m"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_$#]*$`)

// Config holds the complete application configuration
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Web      WebConfig      `toml:"web"`
	Audit    AuditConfig    `toml:"audit"`
	Log      LogConfig      `toml:"log"`

	path string
}

// DatabaseConfig describes how to reach the registration schema through SQL*Plus.
type DatabaseConfig struct {
	Binary           string   `toml:"binary"`
	User             string   `toml:"user"`
	Password         string   `toml:"password"`
	PasswordFile     string   `toml:"password_file"`
	Alias            string   `toml:"alias"`
	Package          string   `toml:"package"`
	ProcedureTimeout Duration `toml:"procedure_timeout"`
	MaxConcurrent    int      `toml:"max_concurrent"`
}

// WebConfig holds HTTP front-end settings
type WebConfig struct {
	Port           int    `toml:"port"`
	Bind           string `toml:"bind"`
	AllowSubnet    string `toml:"allow_subnet"`
	HealthSchedule string `toml:"health_schedule"`
}

// AuditConfig holds the invocation audit log settings. An empty path disables it.
type AuditConfig struct {
	Path string `toml:"path"`
}

// LogConfig holds log file rotation settings. An empty file logs to console only.
type LogConfig struct {
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Duration wraps time.Duration so it can be written as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns a configuration with every optional value filled in.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Binary:           DefaultBinary,
			Package:          DefaultPackage,
			ProcedureTimeout: Duration{DefaultProcTimeout},
			MaxConcurrent:    DefaultMaxConcurrent,
		},
		Web: WebConfig{
			Port:           DefaultPort,
			HealthSchedule: DefaultHealthSchedule,
		},
		Log: LogConfig{
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// Load builds the configuration from defaults, the optional TOML file at path
// (or $REGSHELL_CONFIG) and environment overrides, in that order.
func Load(path string) (*Config, error) {
	return load(path, EnvSettings{})
}

func load(path string, env SettingsGetter) (*Config, error) {
	cfg := Default()
	loader := NewLoader(env)

	if path == "" {
		path = loader.String(EnvConfigPath, "")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		cfg.path = path
	}

	cfg.applyOverrides(loader)

	if err := cfg.resolvePassword(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyOverrides(l *Loader) {
	c.Database.User = l.String(EnvDBUser, c.Database.User)
	c.Database.Password = l.String(EnvDBPassword, c.Database.Password)
	c.Database.Alias = l.String(EnvDBAlias, c.Database.Alias)
	c.Database.Binary = l.String(EnvSQLPlus, c.Database.Binary)
	c.Database.ProcedureTimeout.Duration = l.Duration(EnvProcTimeout, c.Database.ProcedureTimeout.Duration)
	c.Database.MaxConcurrent = l.Int(EnvMaxConcurrent, c.Database.MaxConcurrent)
	c.Audit.Path = l.String(EnvAuditDB, c.Audit.Path)
	c.Log.File = l.String(EnvLogFile, c.Log.File)
	c.Log.Compress = l.Bool(EnvLogCompress, c.Log.Compress)
	c.Web.Port = l.Int(EnvPort, c.Web.Port)
	c.Web.HealthSchedule = l.String(EnvHealthSched, c.Web.HealthSchedule)
}

// resolvePassword reads the password from password_file when no password was
// given directly. Secrets mounted as files usually end with a newline.
func (c *Config) resolvePassword() error {
	if c.Database.Password != "" || c.Database.PasswordFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.Database.PasswordFile)
	if err != nil {
		return fmt.Errorf("failed to read password file: %w", err)
	}
	c.Database.Password = strings.TrimRight(string(data), "\r\n")
	return nil
}

// Path returns the config file the configuration was read from, if any.
func (c *Config) Path() string {
	return c.path
}

// Validate checks the settings needed to talk to the database.
func (c *Config) Validate() error {
	var errs []error

	db := c.Database
	if db.User == "" {
		errs = append(errs, fmt.Errorf("database user is required (set %s or database.user)", EnvDBUser))
	}
	if db.Password == "" {
		errs = append(errs, fmt.Errorf("database password is required (set %s, database.password or database.password_file)", EnvDBPassword))
	}
	if db.Alias == "" {
		errs = append(errs, fmt.Errorf("database alias is required (set %s or database.alias)", EnvDBAlias))
	}
	if db.Binary == "" {
		errs = append(errs, errors.New("sqlplus binary path cannot be empty"))
	}
	if !identifierPattern.MatchString(db.Package) {
		errs = append(errs, fmt.Errorf("invalid package name %q", db.Package))
	}
	if strings.ContainsAny(db.User+db.Alias, "/@\" \t\r\n") {
		errs = append(errs, errors.New("database user and alias cannot contain '/', '@', quotes or whitespace"))
	}
	if strings.ContainsAny(db.Password, "\"\r\n") {
		errs = append(errs, errors.New("database password cannot contain double quotes or newlines"))
	}
	if db.ProcedureTimeout.Duration < 0 {
		errs = append(errs, errors.New("procedure_timeout cannot be negative"))
	}
	if db.MaxConcurrent < 0 {
		errs = append(errs, errors.New("max_concurrent cannot be negative"))
	}

	return errors.Join(errs...)
}

// ValidateWeb checks the HTTP listener settings.
func (c *Config) ValidateWeb() error {
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Web.Port)
	}
	if c.Web.Bind != "" && net.ParseIP(c.Web.Bind) == nil {
		return fmt.Errorf("invalid bind address: %s", c.Web.Bind)
	}
	if _, err := c.AllowedNet(); err != nil {
		return err
	}
	return nil
}

// AllowedNet parses the allow_subnet setting. It returns nil when unset.
func (c *Config) AllowedNet() (*net.IPNet, error) {
	if c.Web.AllowSubnet == "" {
		return nil, nil
	}
	_, parsedNet, err := net.ParseCIDR(c.Web.AllowSubnet)
	if err != nil {
		return nil, fmt.Errorf("invalid allow-subnet CIDR: %s", c.Web.AllowSubnet)
	}
	return parsedNet, nil
}
