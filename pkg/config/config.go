// Package config provides configuration file support for regis.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jvs-project/regis/pkg/errclass"
)

// Dir is the name of the registry metadata directory.
const Dir = ".regis"

// FileName is the config file inside Dir.
const FileName = "config.yaml"

// Config represents the regis configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
	Output   OutputConfig   `yaml:"output"`
}

// StorageConfig selects the table backend and where its files live.
type StorageConfig struct {
	Backend string `yaml:"backend"`  // csv, sqlite
	DataDir string `yaml:"data_dir"` // relative to the registry root unless absolute
}

// SecurityConfig configures credential hashing and login auditing.
type SecurityConfig struct {
	Hasher            string `yaml:"hasher"` // sha256, bcrypt
	BcryptCost        int    `yaml:"bcrypt_cost"`
	AuditFailedLogins bool   `yaml:"audit_failed_logins"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text
}

// OutputConfig configures CLI output.
type OutputConfig struct {
	Format string `yaml:"format"` // text, json
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "csv",
			DataDir: "data",
		},
		Security: SecurityConfig{
			Hasher:     "sha256",
			BcryptCost: 10,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// Path returns the config file location for a registry root.
func Path(root string) string {
	return filepath.Join(root, Dir, FileName)
}

// Load loads configuration from .regis/config.yaml, then applies environment
// overrides. Variables from <root>/.env are loaded first without replacing
// anything already set in the process environment.
// Returns the default config if the file doesn't exist.
func Load(root string) (*Config, error) {
	cfg, err := LoadFile(root)
	if err != nil {
		return nil, err
	}
	if err := loadDotEnv(root); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads .regis/config.yaml over the defaults without consulting the
// environment.
func LoadFile(root string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path(root))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errclass.ErrConfigInvalid.Wrap(err, "parse %s", Path(root))
		}
	}
	return cfg, nil
}

func loadDotEnv(root string) error {
	envPath := filepath.Join(root, ".env")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(envPath); err != nil {
		return errclass.ErrConfigInvalid.Wrap(err, "load %s", envPath)
	}
	return nil
}

// envKeys maps environment variables to config keys.
var envKeys = []struct{ env, key string }{
	{"REGIS_STORAGE_BACKEND", "storage.backend"},
	{"REGIS_DATA_DIR", "storage.data_dir"},
	{"REGIS_HASHER", "security.hasher"},
	{"REGIS_BCRYPT_COST", "security.bcrypt_cost"},
	{"REGIS_AUDIT_FAILED_LOGINS", "security.audit_failed_logins"},
	{"REGIS_LOG_LEVEL", "logging.level"},
	{"REGIS_LOG_FORMAT", "logging.format"},
	{"REGIS_OUTPUT_FORMAT", "output.format"},
}

func (c *Config) applyEnv() error {
	for _, ek := range envKeys {
		v, ok := os.LookupEnv(ek.env)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := c.Set(ek.key, strings.TrimSpace(v)); err != nil {
			return errclass.ErrConfigInvalid.Wrap(err, "%s", ek.env)
		}
	}
	return nil
}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	if !oneOf(c.Storage.Backend, "csv", "sqlite") {
		return errclass.ErrConfigInvalid.WithMessagef("storage.backend must be csv or sqlite, got %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		return errclass.ErrConfigInvalid.WithMessage("storage.data_dir must not be empty")
	}
	if !oneOf(c.Security.Hasher, "sha256", "bcrypt") {
		return errclass.ErrConfigInvalid.WithMessagef("security.hasher must be sha256 or bcrypt, got %q", c.Security.Hasher)
	}
	if c.Security.Hasher == "bcrypt" && (c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31) {
		return errclass.ErrConfigInvalid.WithMessagef("security.bcrypt_cost must be between 4 and 31, got %d", c.Security.BcryptCost)
	}
	if !oneOf(c.Logging.Level, "debug", "info", "warn", "error") {
		return errclass.ErrConfigInvalid.WithMessagef("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if !oneOf(c.Logging.Format, "json", "text") {
		return errclass.ErrConfigInvalid.WithMessagef("logging.format must be json or text, got %q", c.Logging.Format)
	}
	if !oneOf(c.Output.Format, "json", "text") {
		return errclass.ErrConfigInvalid.WithMessagef("output.format must be json or text, got %q", c.Output.Format)
	}
	return nil
}

// DataPath resolves the data directory against the registry root.
func (c *Config) DataPath(root string) string {
	if filepath.IsAbs(c.Storage.DataDir) {
		return c.Storage.DataDir
	}
	return filepath.Join(root, c.Storage.DataDir)
}

// Keys lists the settable keys in display order.
func Keys() []string {
	return []string{
		"storage.backend",
		"storage.data_dir",
		"security.hasher",
		"security.bcrypt_cost",
		"security.audit_failed_logins",
		"logging.level",
		"logging.format",
		"output.format",
	}
}

// Get returns the string form of a config value.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "storage.backend":
		return c.Storage.Backend, nil
	case "storage.data_dir":
		return c.Storage.DataDir, nil
	case "security.hasher":
		return c.Security.Hasher, nil
	case "security.bcrypt_cost":
		return strconv.Itoa(c.Security.BcryptCost), nil
	case "security.audit_failed_logins":
		return strconv.FormatBool(c.Security.AuditFailedLogins), nil
	case "logging.level":
		return c.Logging.Level, nil
	case "logging.format":
		return c.Logging.Format, nil
	case "output.format":
		return c.Output.Format, nil
	}
	return "", errclass.ErrConfigInvalid.WithMessagef("unknown key %q", key)
}

// Set assigns a config value from its string form. It does not validate
// enumerations; call Validate before saving.
func (c *Config) Set(key, value string) error {
	switch key {
	case "storage.backend":
		c.Storage.Backend = strings.ToLower(value)
	case "storage.data_dir":
		c.Storage.DataDir = value
	case "security.hasher":
		c.Security.Hasher = strings.ToLower(value)
	case "security.bcrypt_cost":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errclass.ErrConfigInvalid.WithMessagef("security.bcrypt_cost must be an integer, got %q", value)
		}
		c.Security.BcryptCost = n
	case "security.audit_failed_logins":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errclass.ErrConfigInvalid.WithMessagef("security.audit_failed_logins must be true or false, got %q", value)
		}
		c.Security.AuditFailedLogins = b
	case "logging.level":
		c.Logging.Level = strings.ToLower(value)
	case "logging.format":
		c.Logging.Format = strings.ToLower(value)
	case "output.format":
		c.Output.Format = strings.ToLower(value)
	default:
		return errclass.ErrConfigInvalid.WithMessagef("unknown key %q", key)
	}
	return nil
}

// Save writes configuration to .regis/config.yaml.
func Save(root string, cfg *Config) error {
	cfgPath := Path(root)

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
