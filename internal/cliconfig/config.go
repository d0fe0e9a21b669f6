// Package cliconfig reads and writes the memo CLI's YAML config file.
//
//	server: http://localhost:8080
//	token: eyJhbGciOi...
//	database: /home/me/.local/share/memopad/memos.db
//	locale: en_US
//	user: local
package cliconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goodsign/monday"
	"gopkg.in/yaml.v3"
)

const (
	DefaultServer = "http://localhost:8080"
	appDir        = "memopad"
	fileName      = "config.yaml"
)

// Config is the CLI configuration. Empty fields take the defaults from
// Default.
type Config struct {
	// Server is the base URL of the memo server.
	Server string `yaml:"server,omitempty"`
	// Token is the session token saved by `memo verify`.
	Token string `yaml:"token,omitempty"`
	// Database is the SQLite file used with --local.
	Database string `yaml:"database,omitempty"`
	// Locale picks the day labels of `memo list`.
	Locale string `yaml:"locale,omitempty"`
	// User is the local account name used with --local.
	User string `yaml:"user,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Server:   DefaultServer,
		Database: filepath.Join(dataDir(), appDir, "memos.db"),
		Locale:   string(monday.LocaleEnUS),
		User:     "local",
	}
}

// DefaultPath is $XDG_CONFIG_HOME/memopad/config.yaml, falling back to the
// OS user config directory.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appDir, fileName)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDir, fileName)
	}
	return filepath.Join(".", appDir, fileName)
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share")
	}
	return "."
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("cliconfig: reading %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("cliconfig: parsing %s: %w", path, err)
	}
	cfg.merge(file)
	return cfg, nil
}

// merge overrides c with the non-empty fields of o.
func (c *Config) merge(o Config) {
	if o.Server != "" {
		c.Server = o.Server
	}
	if o.Token != "" {
		c.Token = o.Token
	}
	if o.Database != "" {
		c.Database = o.Database
	}
	if o.Locale != "" {
		c.Locale = o.Locale
	}
	if o.User != "" {
		c.User = o.User
	}
}

// Save writes cfg to path with owner-only permissions, since it may hold a
// session token. The write goes through a temp file and a rename.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("cliconfig: creating config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cliconfig: encoding: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("cliconfig: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("cliconfig: writing: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("cliconfig: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cliconfig: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("cliconfig: replacing %s: %w", path, err)
	}
	return nil
}

// MondayLocale returns Locale as a monday.Locale, en_US when unset.
func (c Config) MondayLocale() monday.Locale {
	if c.Locale == "" {
		return monday.LocaleEnUS
	}
	return monday.Locale(c.Locale)
}
