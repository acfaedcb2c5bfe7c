// Package config resolves settings for the trellis tool.
//
// Settings are layered in order of increasing precedence: built-in
// defaults, a YAML config file, a .env file in the working directory,
// then TRELLIS_* environment variables. Command-line flags are applied
// last by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultDir is the dot directory trellis keeps its files in, relative
// to the working directory.
const DefaultDir = ".trellis"

// Config holds the resolved settings.
type Config struct {
	DBPath       string `yaml:"db_path"`
	SnapshotPath string `yaml:"snapshot_path"`
	AutoSnapshot bool   `yaml:"auto_snapshot"`
	WebAddr      string `yaml:"web_addr"`
	Orientation  string `yaml:"orientation"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DBPath:       filepath.Join(DefaultDir, "trellis.db"),
		SnapshotPath: filepath.Join(DefaultDir, "snapshot.jsonl"),
		AutoSnapshot: true,
		WebAddr:      "localhost:8340",
		Orientation:  "vertical",
	}
}

// DefaultPath returns the config file location inside the dot directory.
func DefaultPath() string {
	return filepath.Join(DefaultDir, "config.yaml")
}

// Load resolves the configuration. path selects the YAML config file;
// when empty the default location is tried and skipped if absent. A path
// given explicitly must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	// A .env file may supply the TRELLIS_* variables read below.
	// Variables already set in the environment win over the file.
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := loadFile(path, &cfg); err != nil {
		if explicit || !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TRELLIS_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TRELLIS_SNAPSHOT_PATH"); v != "" {
		cfg.SnapshotPath = v
	}
	if v := os.Getenv("TRELLIS_AUTO_SNAPSHOT"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TRELLIS_AUTO_SNAPSHOT %q: %w", v, err)
		}
		cfg.AutoSnapshot = on
	}
	if v := os.Getenv("TRELLIS_WEB_ADDR"); v != "" {
		cfg.WebAddr = v
	}
	if v := os.Getenv("TRELLIS_ORIENTATION"); v != "" {
		cfg.Orientation = v
	}
	return nil
}
