package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/obask/taskonizer/pkg/store"
)

const (
	xdgAppName = "taskonizer"
	configFile = "config.json"

	EnvDSN         = "TASKONIZER_DSN"
	EnvDataFile    = "TASKONIZER_DATA_FILE"
	EnvTodayPolicy = "TASKONIZER_TODAY_POLICY"
)

type Config struct {
	// DataFile is the JSON store; empty means ~/.config/taskonizer/tasks.json.
	DataFile string `json:"data_file,omitempty"`
	// DSN selects a MySQL or PostgreSQL (postgres://) store instead of the JSON file.
	DSN         string            `json:"dsn,omitempty"`
	TodayPolicy store.TodayPolicy `json:"today_policy"`
	EmptyTitles bool              `json:"empty_titles"`
}

func Default() *Config {
	return &Config{TodayPolicy: store.DefaultTodayPolicy}
}

func GetConfigDir() (string, error) {
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgHome, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the config file, then applies overrides from the environment
// (and from a .env file in the working directory, if present).
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not read .env: %v", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads the config at path. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	defer f.Close()

	cfg := Default()
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.TodayPolicy, err = store.ParseTodayPolicy(string(cfg.TodayPolicy)); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDSN); v != "" {
		c.DSN = v
	}
	if v := os.Getenv(EnvDataFile); v != "" {
		c.DataFile = v
	}
	if v := os.Getenv(EnvTodayPolicy); v != "" {
		p, err := store.ParseTodayPolicy(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTodayPolicy, err)
		}
		c.TodayPolicy = p
	}
	return nil
}

// StoreOptions translates the policy fields into store options.
func (c *Config) StoreOptions() []store.Option {
	opts := []store.Option{store.WithTodayPolicy(c.TodayPolicy)}
	if c.EmptyTitles {
		opts = append(opts, store.WithEmptyTitlePolicy(store.AllowEmptyTitles))
	}
	return opts
}

// Update applies fn to the config as stored on disk and writes it back.
// Environment overrides are not applied, so they never end up in the file.
func Update(fn func(*Config)) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return UpdateFile(path, fn)
}

func UpdateFile(path string, fn func(*Config)) error {
	cfg, err := LoadFile(path)
	if err != nil {
		return err
	}
	fn(cfg)
	return SaveFile(path, cfg)
}

func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

func SaveFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}
